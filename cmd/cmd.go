// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/multi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	redis "gopkg.in/redis.v5"

	"github.com/edgekit/thingsboard-connector/connector"
	httpconnector "github.com/edgekit/thingsboard-connector/connector/http"
	mqttconnector "github.com/edgekit/thingsboard-connector/connector/mqtt"
	"github.com/edgekit/thingsboard-connector/gateway"
	"github.com/edgekit/thingsboard-connector/types"
)

// ConnectorCmd is the main command that is executed when running thingsboard-connector
var ConnectorCmd = &cobra.Command{
	Use:   "thingsboard-connector [key=value ...]",
	Short: "Send key/value telemetry to a ThingsBoard server",
	Long: `thingsboard-connector buffers key/value readings and forwards them to a
ThingsBoard server over HTTP or MQTT. In gateway mode, readings are given as
device:key=value and attributed to sub-devices over one MQTT session.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var logHandlers []log.Handler

		logHandlers = append(logHandlers, cli.New(os.Stdout))

		if logFileLocation := config.GetString("log-file"); logFileLocation != "" {
			absLogFileLocation, err := filepath.Abs(logFileLocation)
			if err != nil {
				panic(err)
			}
			logFile, err = os.OpenFile(absLogFileLocation, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
			if err != nil {
				panic(err)
			}
			logHandlers = append(logHandlers, json.New(logFile))
		}

		level := log.InfoLevel
		if config.GetBool("debug") {
			level = log.DebugLevel
		}
		ctx = &log.Logger{
			Level:   level,
			Handler: multi.New(logHandlers...),
		}
	},
	Run: runConnector,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			time.Sleep(100 * time.Millisecond)
			logFile.Close()
		}
	},
}

func runConnector(cmd *cobra.Command, args []string) {
	if config.GetBool("gateway") {
		runGateway(args)
		return
	}

	host := config.GetString("host")
	token := config.GetString("token")
	debug := config.GetBool("debug")

	var conn connector.Connector
	var err error
	switch transport := config.GetString("transport"); transport {
	case "http":
		ctx.WithField("Host", host).Info("Initializing HTTP connector")
		conn, err = httpconnector.New(httpconnector.Config{
			Host:        host,
			Port:        config.GetInt("http-port"),
			AccessToken: token,
			Debug:       debug,
			Timeout:     config.GetDuration("timeout"),
		}, ctx)
	case "mqtt":
		ctx.WithField("Host", host).Info("Initializing MQTT connector")
		conn, err = mqttconnector.New(mqttconnector.Config{
			Host:           host,
			Port:           config.GetInt("mqtt-port"),
			AccessToken:    token,
			Debug:          debug,
			ConnectTimeout: config.GetDuration("timeout"),
		}, ctx)
	default:
		ctx.Fatalf("Unknown transport %q", transport)
	}
	if err != nil {
		ctx.WithError(err).Fatal("Could not initialize connector")
	}
	defer conn.Disconnect()

	values, err := parseReadings(args)
	if err != nil {
		ctx.WithError(err).Fatal("Could not parse readings")
	}
	if err := conn.SetAll(values); err != nil {
		ctx.WithError(err).Fatal("Could not buffer readings")
	}

	outcome := conn.SendTelemetry().Wait()
	if !outcome.OK() {
		ctx.WithError(outcome.Err).Fatalf("Telemetry not sent (%s)", outcome.Class)
	}
	ctx.WithField("Readings", len(values)).Info("Telemetry sent")
}

func runGateway(args []string) {
	mqtt, err := mqttconnector.New(mqttconnector.Config{
		Host:           config.GetString("host"),
		Port:           config.GetInt("mqtt-port"),
		AccessToken:    config.GetString("token"),
		Debug:          config.GetBool("debug"),
		ConnectTimeout: config.GetDuration("timeout"),
	}, ctx)
	if err != nil {
		ctx.WithError(err).Fatal("Could not initialize MQTT connector")
	}
	defer mqtt.Disconnect()

	bridge := gateway.New(mqtt, ctx)

	if config.GetBool("redis") {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.GetString("redis-address"),
			Password: config.GetString("redis-password"),
			DB:       config.GetInt("redis-db"),
		})
		ctx.Info("Initializing Redis device state")
		devices := bridge.InitRedisState(redisClient, "")
		if len(devices) > 0 {
			ctx.Infof("Reconnecting %d devices", len(devices))
			for _, device := range devices {
				if send, err := bridge.ConnectDevice(device); err == nil {
					send.Wait()
				}
			}
		}
	}

	readings, err := parseDeviceReadings(args)
	if err != nil {
		ctx.WithError(err).Fatal("Could not parse readings")
	}
	for device, values := range readings {
		send, err := bridge.ConnectDevice(device)
		if err != nil {
			ctx.WithError(err).Fatal("Could not connect device")
		}
		send.Wait()
		if err := bridge.SetDeviceValues(device, values); err != nil {
			ctx.WithError(err).Fatal("Could not buffer readings")
		}
	}

	outcome := bridge.SendTelemetry().Wait()
	if !outcome.OK() {
		ctx.WithError(outcome.Err).Fatalf("Telemetry not sent (%s)", outcome.Class)
	}
	ctx.WithField("Devices", len(readings)).Info("Telemetry sent")
}

// parseReadings turns key=value arguments into a telemetry mapping
func parseReadings(args []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("%w: reading %q must have the form key=value", types.ErrInvalidArgument, arg)
		}
		values[key] = types.ParseScalar(value)
	}
	return values, nil
}

// parseDeviceReadings turns device:key=value arguments into per-device mappings
func parseDeviceReadings(args []string) (map[string]map[string]interface{}, error) {
	readings := make(map[string]map[string]interface{})
	for _, arg := range args {
		device, reading, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("%w: reading %q must have the form device:key=value", types.ErrInvalidArgument, arg)
		}
		key, value, ok := strings.Cut(reading, "=")
		if !ok {
			return nil, fmt.Errorf("%w: reading %q must have the form device:key=value", types.ErrInvalidArgument, arg)
		}
		if _, ok := readings[device]; !ok {
			readings[device] = make(map[string]interface{})
		}
		readings[device][key] = types.ParseScalar(value)
	}
	return readings, nil
}

func init() {
	ConnectorCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")

	ConnectorCmd.Flags().String("log-file", "", "Location of the log file")

	ConnectorCmd.Flags().String("host", "thingsboard.cloud", "Hostname of the ThingsBoard server")
	ConnectorCmd.Flags().String("token", "", "Access token of the device")
	ConnectorCmd.Flags().String("transport", "mqtt", "Transport to send telemetry over (http or mqtt)")
	ConnectorCmd.Flags().Int("http-port", 80, "Port of the HTTP telemetry endpoint")
	ConnectorCmd.Flags().Int("mqtt-port", 1883, "Port of the MQTT broker")
	ConnectorCmd.Flags().Bool("debug", false, "Print verbose send diagnostics")
	ConnectorCmd.Flags().Duration("timeout", 30*time.Second, "Timeout for connecting and sending")

	ConnectorCmd.Flags().Bool("gateway", false, "Attribute readings to sub-devices (device:key=value) over one MQTT session")
	ConnectorCmd.Flags().Bool("redis", false, "Persist connected sub-devices in Redis")
	ConnectorCmd.Flags().String("redis-address", "localhost:6379", "Redis host and port")
	ConnectorCmd.Flags().String("redis-password", "", "Redis password")
	ConnectorCmd.Flags().Int("redis-db", 0, "Redis database")

	viper.BindPFlags(ConnectorCmd.Flags())
}
