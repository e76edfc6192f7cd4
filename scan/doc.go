// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package scan locates elections on the ledger by probing a range of IDs or
// start timestamps. It is an administrator's repair tool for mappings that
// point at the wrong ledger ID.
package scan
