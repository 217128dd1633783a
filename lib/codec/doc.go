// Copyright 2026 The Hawaii Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the session's CBOR encoding configuration,
// used for on-disk state files such as the fail-safe marker.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same logical data always produces identical bytes. Times are encoded
// as RFC 3339 strings with nanosecond precision.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types serialized only as CBOR use `cbor` struct tags.
package codec
