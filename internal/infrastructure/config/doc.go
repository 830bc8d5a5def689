// Package config loads the bridge configuration.
//
// Load applies, in order: built-in defaults, the YAML file, CASETA_*
// environment variables, defaults derived from other fields (the command
// pattern and feedback prefix from the topic root), and finally Validate,
// which reports every problem at once.
//
//	cfg, err := config.Load(os.Getenv("CASETA_CONFIG"))
//
// Secrets (CASETA_MQTT_PASSWORD, CASETA_INFLUXDB_TOKEN) belong in the
// environment or the .env file main loads, not in config.yaml. The
// credentials directory holds the bridge pairing key and should be 0700.
package config
