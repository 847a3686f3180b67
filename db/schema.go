package db

import _ "embed"

// Schema is the DDL for every table the core reads or writes.
//
//go:embed schema.sql
var Schema string
