// Package influxdb records device state history in InfluxDB and reads it back.
//
// Every state change the bridge reports for a dimmer, switch, fan or shade
// becomes one device_state point tagged by device name and kind, with level
// and on fields. History queries that measurement with Flux for the API's
// /devices/{name}/history endpoint.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	facade, _ := caseta.New(caseta.Options{Recorder: client, ...})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched according to batch_size and flush_interval; failures arrive
// asynchronously through the SetOnError callback.
package influxdb
