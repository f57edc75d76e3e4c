// Package logger provides the colored console slog handler used by the
// coworkd command and local development builds.
//
// Setup installs the handler as the process-wide slog default; the rest of
// the module logs through log/slog and stays unaware of the handler.
package logger
