// Copyright ©2024 The bíogo Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package angsd

// Logger is satisfied by *log.Logger and is the only logging dependency
// the saf and glf packages take. Passing a nil Logger to a constructor is
// equivalent to passing NopLogger: readers and writers never require a
// logger to function.
type Logger interface {
	Printf(format string, v ...interface{})
}

// NopLogger discards every message. It is the default used by constructors
// when no Logger is supplied.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// OrNop returns l, or NopLogger if l is nil, so call sites never need a
// nil check before logging.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger
	}
	return l
}
