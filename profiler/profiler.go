// Copyright 2024 Dominik Honnef and contributors
// SPDX-License-Identifier: Apache-2.0 OR MIT

package profiler

// ProfilerGroup is a span in a hierarchy of timed regions. Start opens a
// child span and End closes the receiver. Implementations may record CPU
// time, GPU timestamps, or nothing at all.
type ProfilerGroup interface {
	Start(label string) ProfilerGroup
	End()
}
