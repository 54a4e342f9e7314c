/*
Package log provides structured logging for the storage mediator using
zerolog.

The package wraps a single global zerolog.Logger, configured once via
Init, plus helpers that derive component-scoped child loggers so every
log line carries context about which part of the mediator emitted it.

# Configuration

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true, // false gives a human-readable console writer
	})

Level is one of DebugLevel, InfoLevel, WarnLevel, ErrorLevel; an
unrecognized value falls back to InfoLevel. Output defaults to os.Stdout
when Config.Output is nil.

# Scoped loggers

WithComponent, WithDirectory, and WithUsername each return a
zerolog.Logger carrying one extra structured field, for the three axes
the mediator's own log lines are scoped along:

	clog := log.WithComponent("cache")
	clog.Debug().Int("entries", n).Msg("evicted expired entries")

	dlog := log.WithDirectory(directory)
	dlog.Warn().Uint64("epoch", epoch).Msg("commit missing metadata")

pkg/cache, pkg/transaction, and pkg/manager each hold a WithComponent
logger for their own name ("cache", "transaction", "manager") rather
than logging through the bare global Logger, so every line in a mixed
log stream is attributable to one of the mediator's three subsystems.

# Package-level helpers

Info, Debug, Warn, Error, Errorf, and Fatal write directly through the
global Logger for call sites that do not need a scoped child logger,
such as cmd/akdbench's top-level CLI output.
*/
package log
