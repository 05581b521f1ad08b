package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/indexima/pkg/errors"
)

// Example demonstrates basic error creation.
func Example() {
	err := errors.New(errors.ErrorTypeValidation, "kerberos_service_name should be set in KERBEROS mode").
		WithDetail("auth", "KERBEROS")

	fmt.Println(err.Error())

	// Output:
	// validation: kerberos_service_name should be set in KERBEROS mode
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.EOF, errors.ErrorTypeConnection, "failed to open hive session").
		WithDetail("host", "indexima.local").
		WithDetail("port", 10000)

	if errors.IsType(err, errors.ErrorTypeConnection) {
		fmt.Println("This is a connection error")
	}
	if errors.Is(err, io.EOF) {
		fmt.Println("Original error was EOF")
	}

	// Output:
	// This is a connection error
	// Original error was EOF
}

// ExampleIsType demonstrates checking error types through wrapping.
func ExampleIsType() {
	notFound := errors.New(errors.ErrorTypeNotFound, "no connection identifier found with indexima_default")
	wrapped := errors.Wrap(notFound, errors.ErrorTypeConfig, "failed to resolve connection")

	fmt.Printf("Is not found: %v\n", errors.IsType(notFound, errors.ErrorTypeNotFound))
	fmt.Printf("Wrapped is config: %v\n", errors.IsType(wrapped, errors.ErrorTypeConfig))
	fmt.Printf("Wrapped is not found: %v\n", errors.IsType(wrapped, errors.ErrorTypeNotFound))
	fmt.Printf("Wrapped has not found: %v\n", errors.HasType(wrapped, errors.ErrorTypeNotFound))

	// Output:
	// Is not found: true
	// Wrapped is config: true
	// Wrapped is not found: false
	// Wrapped has not found: true
}
