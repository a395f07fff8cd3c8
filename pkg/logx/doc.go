// Package logx wraps zerolog behind a small fielded-logger API whose
// output sinks (console, file) can be swapped at runtime via Service.Apply.
package logx
