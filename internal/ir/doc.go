// Package ir provides the tabular value model shared by every recon package.
//
// This package contains type definitions and encodings only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - non-integer numbers are exact Decimals
//   - Cells are scalar: Null, String, Int, Bool or Decimal
//   - Table column order is significant and always preserved
//   - Canonical JSON (MarshalCanonical) is the only input to digests
package ir
