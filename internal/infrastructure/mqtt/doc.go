// Package mqtt publishes pgadapt results to an MQTT broker.
//
// It wraps paho.mqtt.golang with auto-reconnect, a Last Will on the
// status topic, and payload validation. Publishing is optional and off by
// default; Connect returns ErrDisabled unless mqtt.enabled is set.
//
//	pgadapt check ──► probe.Runner ──► Broadcast ──► {prefix}/probe/{server}/{case}
//	pgadapt catalog refresh ─────────────────────► {prefix}/catalog/{server} (retained)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishProbeResult("db:5432/app", "int8_min", msg)
package mqtt
