// Package logging builds the bridge's slog logger from the logging section
// of the configuration.
//
// Every entry carries service=caseta and the build version. Output is
// JSON or text on stdout, stderr, or a size-rotated file (lumberjack), which
// is what long-running installs on a Pi usually want:
//
//	logging:
//	  level: info        # debug shows every resolver decision
//	  format: text
//	  output: file
//	  file:
//	    path: /var/log/caseta/bridge.log
//	    max_size: 10     # MB
//	    max_backups: 10
//
// Components below main take a narrow Logger interface and default to a
// no-op, so *Logger is passed down through their Options. The pairing key
// and MQTT password are never logged.
package logging
