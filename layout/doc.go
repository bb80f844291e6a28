// Package layout computes the binary layout of types that cross the
// boundary.
//
// Rules:
//   - struct fields keep declared order with natural alignment only
//   - field-less enums use the smallest integer for their values (EnumRepr)
//   - sequences are {ptr, len}, optional values are nullable pointers
//   - strings are nul-terminated unless carried as a slice
//   - fixed-size arrays inside structs live in a single-field wrapper struct
//
// Types can be described directly, derived from WIT (FromWIT) or from Go mirror
// types (FromGo).
package layout
