package config

import "github.com/divvun/pahkat-go/pahkaterr"

func errReadOnly() error {
	return pahkaterr.New(pahkaterr.ConfigReadOnly, nil)
}

func errIO(cause error) error {
	return pahkaterr.New(pahkaterr.ConfigIO, cause)
}

func errParse(cause error) error {
	return pahkaterr.New(pahkaterr.ConfigParse, cause)
}
