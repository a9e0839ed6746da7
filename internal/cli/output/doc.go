// Package output renders kvs-client admin reports as a table, JSON or
// YAML.
package output
