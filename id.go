package saleledger

import "github.com/xraph/saleledger/id"

// ID is the primary identifier type for sale ledger records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
