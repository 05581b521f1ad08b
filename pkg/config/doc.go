// Task files are YAML documents; ${VAR} and ${VAR:-default} references are
// substituted from the environment before decoding:
//
//	task_id: load_sales
//	operator: load
//	hook:
//	  connection_id: indexima_default
//	  auth: CUSTOM
//	  timeout: 90s
//	  socket_keepalive: true
//	load:
//	  target_table: sales
//	  load_path_uri: ${SALES_URI}
//	  source_select_query: select * from sales where day = '{{ .ds }}'
//	  pause: 2s
//
// Durations accept Go syntax ("90s", "10h"); hook.timeout is sent to the
// server in whole seconds.
package config
