// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/balance_board/internal/calibration"
)

// Board source kinds accepted by BOARD_SOURCE.
const (
	SourceSerial   = "serial"
	SourceLoadCell = "loadcell"
	SourceMQTT     = "mqtt"
	SourceReplay   = "replay"
	SourceMock     = "mock"
)

// SSD1306Addr is the only I2C address the ssd1306 driver talks to.
const SSD1306Addr = 0x3C

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker              string
	MQTTClientIDProducer    string
	MQTTClientIDCalibration string
	MQTTClientIDConsole     string
	MQTTClientIDWeb         string
	MQTTClientIDDisplay     string

	// Topics
	TopicReadings           string
	TopicCalibrationEvents  string
	TopicCalibrationFactors string

	// Board source
	BoardSource     string // serial, loadcell, mqtt, replay, mock
	BoardSerialPort string
	BoardBaudRate   int

	// HX711 load cell GPIO pins, one clock/data pair per corner
	LoadCellTLClkPin    string
	LoadCellTLDataPin   string
	LoadCellTRClkPin    string
	LoadCellTRDataPin   string
	LoadCellBLClkPin    string
	LoadCellBLDataPin   string
	LoadCellBRClkPin    string
	LoadCellBRDataPin   string
	LoadCellReadTimeout int // milliseconds

	// Dataset replay
	ReplayPath string

	// Timing
	SampleRateHz int

	// Calibration
	TargetOrder   []calibration.Direction
	TargetRadius  float64
	TargetSize    float64
	MovementScale float64
	NeutralFactor float64
	FactorMin     float64
	FactorMax     float64

	// Output
	UserID         string
	GameName       string
	CalibrationDir string
	HistoryDBPath  string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal() and Get().
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex; write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// defaults returns a Config carrying every optional value.
func defaults() *Config {
	return &Config{
		MQTTClientIDProducer:    "balance-board-producer",
		MQTTClientIDCalibration: "balance-calibration",
		MQTTClientIDConsole:     "balance-console-subscriber",
		MQTTClientIDWeb:         "balance-web",
		MQTTClientIDDisplay:     "balance-display",

		TopicReadings:           "balance/readings",
		TopicCalibrationEvents:  "balance/calibration/events",
		TopicCalibrationFactors: "balance/calibration/factors",

		BoardSource:         SourceSerial,
		BoardSerialPort:     "/dev/ttyUSB0",
		BoardBaudRate:       115200,
		LoadCellReadTimeout: 50,

		SampleRateHz: 60,

		TargetOrder:   append([]calibration.Direction(nil), calibration.DefaultOrder...),
		TargetRadius:  calibration.DefaultRadius,
		TargetSize:    calibration.DefaultBoxSize,
		MovementScale: calibration.DefaultScale,
		NeutralFactor: 1.0,
		FactorMin:     calibration.DefaultMinFactor,
		FactorMax:     calibration.DefaultMaxFactor,

		UserID:         "guest",
		GameName:       "Calibration",
		CalibrationDir: "./calibration",
		HistoryDBPath:  "./calibration/history.db",

		WebServerPort: 8080,

		DisplayI2CAddr:        SSD1306Addr,
		DisplayUpdateInterval: 200,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r. Lines starting with # are comments.
func Parse(r io.Reader) (*Config, error) {
	cfg := defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CALIBRATION":
		c.MQTTClientIDCalibration = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_READINGS":
		c.TopicReadings = value
	case "TOPIC_CALIBRATION_EVENTS":
		c.TopicCalibrationEvents = value
	case "TOPIC_CALIBRATION_FACTORS":
		c.TopicCalibrationFactors = value

	// Board source
	case "BOARD_SOURCE":
		switch value {
		case SourceSerial, SourceLoadCell, SourceMQTT, SourceReplay, SourceMock:
			c.BoardSource = value
		default:
			return fmt.Errorf("BOARD_SOURCE must be one of serial, loadcell, mqtt, replay, mock, got %q", value)
		}
	case "BOARD_SERIAL_PORT":
		c.BoardSerialPort = value
	case "BOARD_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BOARD_BAUD_RATE %q: %w", value, err)
		}
		c.BoardBaudRate = rate

	// Load cells
	case "LOADCELL_TL_CLK_PIN":
		c.LoadCellTLClkPin = value
	case "LOADCELL_TL_DATA_PIN":
		c.LoadCellTLDataPin = value
	case "LOADCELL_TR_CLK_PIN":
		c.LoadCellTRClkPin = value
	case "LOADCELL_TR_DATA_PIN":
		c.LoadCellTRDataPin = value
	case "LOADCELL_BL_CLK_PIN":
		c.LoadCellBLClkPin = value
	case "LOADCELL_BL_DATA_PIN":
		c.LoadCellBLDataPin = value
	case "LOADCELL_BR_CLK_PIN":
		c.LoadCellBRClkPin = value
	case "LOADCELL_BR_DATA_PIN":
		c.LoadCellBRDataPin = value
	case "LOADCELL_READ_TIMEOUT":
		timeout, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid LOADCELL_READ_TIMEOUT %q: %w", value, err)
		}
		c.LoadCellReadTimeout = timeout

	// Replay
	case "REPLAY_PATH":
		c.ReplayPath = value

	// Timing
	case "SAMPLE_RATE_HZ":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_RATE_HZ %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("SAMPLE_RATE_HZ must be positive, got %d", rate)
		}
		c.SampleRateHz = rate

	// Calibration
	case "TARGET_ORDER":
		order, err := calibration.ParseOrder(value)
		if err != nil {
			return fmt.Errorf("invalid TARGET_ORDER %q: %w", value, err)
		}
		c.TargetOrder = order
	case "TARGET_RADIUS":
		return parsePositive(key, value, &c.TargetRadius)
	case "TARGET_SIZE":
		return parsePositive(key, value, &c.TargetSize)
	case "MOVEMENT_SCALE":
		return parsePositive(key, value, &c.MovementScale)
	case "NEUTRAL_FACTOR":
		return parsePositive(key, value, &c.NeutralFactor)
	case "FACTOR_MIN":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FACTOR_MIN %q: %w", value, err)
		}
		c.FactorMin = v
	case "FACTOR_MAX":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FACTOR_MAX %q: %w", value, err)
		}
		c.FactorMax = v

	// Output
	case "USER_ID":
		c.UserID = value
	case "GAME_NAME":
		c.GameName = value
	case "CALIBRATION_DIR":
		c.CalibrationDir = value
	case "HISTORY_DB_PATH":
		c.HistoryDBPath = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func parsePositive(key, value string, dst *float64) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %v", key, v)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	switch c.BoardSource {
	case SourceSerial:
		if c.BoardSerialPort == "" {
			return fmt.Errorf("BOARD_SERIAL_PORT is required for serial source")
		}
		if c.BoardBaudRate == 0 {
			return fmt.Errorf("BOARD_BAUD_RATE is required for serial source")
		}
	case SourceLoadCell:
		for name, pin := range map[string]string{
			"LOADCELL_TL_CLK_PIN": c.LoadCellTLClkPin, "LOADCELL_TL_DATA_PIN": c.LoadCellTLDataPin,
			"LOADCELL_TR_CLK_PIN": c.LoadCellTRClkPin, "LOADCELL_TR_DATA_PIN": c.LoadCellTRDataPin,
			"LOADCELL_BL_CLK_PIN": c.LoadCellBLClkPin, "LOADCELL_BL_DATA_PIN": c.LoadCellBLDataPin,
			"LOADCELL_BR_CLK_PIN": c.LoadCellBRClkPin, "LOADCELL_BR_DATA_PIN": c.LoadCellBRDataPin,
		} {
			if pin == "" {
				return fmt.Errorf("%s is required for loadcell source", name)
			}
		}
	case SourceReplay:
		if c.ReplayPath == "" {
			return fmt.Errorf("REPLAY_PATH is required for replay source")
		}
	}
	if c.DisplayI2CAddr != SSD1306Addr {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x%02X, got 0x%02X", SSD1306Addr, c.DisplayI2CAddr)
	}
	if _, err := c.CalibrationConfig(); err != nil {
		return err
	}
	return nil
}

// CalibrationConfig converts the file values into the engine configuration.
func (c *Config) CalibrationConfig() (calibration.Config, error) {
	cc := calibration.Config{
		Order:     append([]calibration.Direction(nil), c.TargetOrder...),
		Targets:   calibration.Layout(c.TargetRadius, c.TargetSize),
		Scale:     c.MovementScale,
		Neutral:   calibration.NeutralFactors(c.NeutralFactor),
		MinFactor: c.FactorMin,
		MaxFactor: c.FactorMax,
	}
	if err := cc.Validate(); err != nil {
		return calibration.Config{}, err
	}
	return cc, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
