// Package validate rejects malformed input before it reaches a store.
//
// Each [Schema] is an ordered list of fields. Every field constraint is a
// small JSON schema, and Validate reports only the first failing field in
// declaration order.
package validate
