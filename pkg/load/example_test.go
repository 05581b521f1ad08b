package load_test

import (
	"fmt"

	"github.com/ajitpratap0/indexima/pkg/load"
)

// ExampleStatement_Build shows the statement sent for a CSV load with a header line.
func ExampleStatement_Build() {
	stmt := load.Statement{
		Path:   "s3://bucket/sales/",
		Table:  "sales",
		Format: "CSV",
		Skip:   1,
	}
	fmt.Printf("%q\n", stmt.Build())

	// Output:
	// "LOAD DATA INPATH 's3://bucket/sales/' \nINTO TABLE sales \nFORMAT CSV \nSKIP 1;"
}
