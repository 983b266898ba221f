package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics holds Prometheus metrics for foreground/background transitions.
type LifecycleMetrics struct {
	TimerArms     prometheus.Counter
	TimerCancels  prometheus.Counter
	TimerFires    prometheus.Counter
	TimerFailures prometheus.Counter

	Suspends        prometheus.Counter
	SuspendVetoes   prometheus.Counter
	SuspendsSkipped prometheus.Counter
	Resumes         prometheus.Counter
	MediaPrunes     prometheus.Counter

	// StepFailures counts per-session step failures, by step.
	StepFailures *prometheus.CounterVec

	LocaleRestarts *prometheus.CounterVec
	Foreground     prometheus.Gauge
}

// NewLifecycleMetrics creates and registers lifecycle metrics on the given registry.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &LifecycleMetrics{
		TimerArms:       counter("transition_timer", "arms_total", "Total number of times the background transition timer was armed."),
		TimerCancels:    counter("transition_timer", "cancels_total", "Total number of armed transition timers cancelled by a resume."),
		TimerFires:      counter("transition_timer", "fires_total", "Total number of transition timer expiries handled."),
		TimerFailures:   counter("transition_timer", "schedule_failures_total", "Total number of transition timers that could not be scheduled."),
		Suspends:        counter("lifecycle", "suspends_total", "Total number of suspend sequences run."),
		SuspendVetoes:   counter("lifecycle", "suspend_vetoes_total", "Total number of suspends skipped because a call was in progress."),
		SuspendsSkipped: counter("lifecycle", "suspends_skipped_total", "Total number of suspends skipped because the app was already suspended."),
		Resumes:         counter("lifecycle", "resumes_total", "Total number of resume sequences run."),
		MediaPrunes:     counter("lifecycle", "media_prunes_total", "Total number of media prune passes."),
		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "session_step_failures_total",
			Help:      "Total number of failed per-session suspend/resume steps, by step.",
		}, []string{"step"}),
		LocaleRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locale",
			Name:      "screen_restarts_total",
			Help:      "Total number of screen restarts requested by the locale guard, by outcome.",
		}, []string{"outcome"}),
		Foreground: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "foreground",
			Help:      "1 when a screen is foregrounded, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.TimerArms, m.TimerCancels, m.TimerFires, m.TimerFailures,
		m.Suspends, m.SuspendVetoes, m.SuspendsSkipped, m.Resumes, m.MediaPrunes,
		m.StepFailures, m.LocaleRestarts, m.Foreground,
	)
	return m
}

// RegistryMetrics holds the session registry size gauge.
type RegistryMetrics struct {
	Sessions prometheus.Gauge
}

func NewRegistryMetrics(reg prometheus.Registerer) *RegistryMetrics {
	m := &RegistryMetrics{
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session_registry",
			Name:      "sessions",
			Help:      "Number of sessions currently kept online.",
		}),
	}
	reg.MustRegister(m.Sessions)
	return m
}
