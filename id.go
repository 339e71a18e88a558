package vesting

import "github.com/xraph/vesting/id"

// ID identifies instructions and command invocations.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
