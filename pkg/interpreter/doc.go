// Package interpreter evaluates R programs parsed by pkg/parser. It provides
// lazy argument promises, copy-on-modify replacement, R argument matching,
// attribute propagation for vector arithmetic and the condition and restart
// system (tryCatch, withCallingHandlers, withRestarts). Non-local control
// flow travels through the evaluator as Go error values.
package interpreter
