// Package domain defines the value types shared across the design inspector:
// factors (categorical variables with per-category observation counts),
// relationships (nesting and classification), and the Design aggregate that
// the grammar serializer and diagram renderers consume.
package domain
