// Package app decides whether the application is in the foreground or the
// background and drives the suspend/resume side effects.
//
// Tracker receives screen lifecycle events (usually through Dispatcher, which
// serializes them onto one goroutine). When no screen is active for the
// transition delay, TransitionTimer fires and Coordinator suspends every
// registered session; the next resumed screen resumes them. Tracker also
// asks the locale guard to restart screens whose locale went stale.
//
// Tracker, TransitionTimer and Coordinator share one mutex owned by Tracker.
// Collaborators invoked from within it must not call back into the tracker.
package app
