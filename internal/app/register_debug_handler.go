// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/relabs-tech/inertial_i2c/internal/config"
	"github.com/relabs-tech/inertial_i2c/internal/imu"
	"github.com/relabs-tech/inertial_i2c/internal/sensors"
	"github.com/relabs-tech/inertial_i2c/internal/sensors/mpu9250"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// RegisterDevice is the device driven by the register debug tool.
// *sensors.IMUManager implements it.
type RegisterDevice interface {
	Name() string
	ReadRaw() (imu.IMURaw, error)
	ReadRegister(device string, reg byte) (byte, error)
	WriteRegister(device string, reg, value byte) error
	ReadAllRegisters(device string) (map[byte]byte, error)
	RegisterMap(device string) ([]mpu9250.RegisterInfo, error)
	Reinitialize() error
}

// RegisterCmd is a WebSocket request from the debug page.
type RegisterCmd struct {
	Action  string `json:"action"`           // "get_map", "read", "read_all", "write", "init", "export_config"
	Device  string `json:"device,omitempty"` // "mpu9250" (default) or "ak8963"
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
}

// RegisterResponse is a WebSocket reply.
type RegisterResponse struct {
	Type        string            `json:"type"`             // "register_data", "register_map", "status", "export_config", "error"
	Device      string            `json:"device,omitempty"` // "mpu9250" or "ak8963"
	IMU         string            `json:"imu,omitempty"`
	Address     string            `json:"addr,omitempty"`
	Value       string            `json:"value,omitempty"`
	Registers   map[string]string `json:"registers,omitempty"` // for bulk read
	Timestamp   string            `json:"timestamp,omitempty"`
	Message     string            `json:"message,omitempty"`
	Status      string            `json:"status,omitempty"`
	RegisterMap []RegisterInfo    `json:"register_map,omitempty"`
	Config      string            `json:"config,omitempty"`
	Filename    string            `json:"filename,omitempty"`
}

// RegisterInfo is register metadata with hex formatted values.
type RegisterInfo struct {
	Address     string             `json:"address"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Access      string             `json:"access"` // "R", "W", "RW"
	Default     string             `json:"default,omitempty"`
	BitFields   []mpu9250.BitField `json:"bit_fields,omitempty"`
	FuseROM     bool               `json:"fuse_rom,omitempty"`
}

// RegisterConfigFile represents the JSON structure for exported register configuration
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	IMU       string            `json:"imu"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

// RegisterDebugServer serves the register debug tool.
type RegisterDebugServer struct {
	dev     RegisterDevice
	allowed []config.RegisterRange
	page    string
	now     func() time.Time
}

// NewRegisterDebugServer returns a server for dev. MPU writes are limited to
// the allowed ranges; with none, MPU writes are refused.
func NewRegisterDebugServer(dev RegisterDevice, allowed []config.RegisterRange) *RegisterDebugServer {
	return &RegisterDebugServer{
		dev:     dev,
		allowed: allowed,
		page:    "web/register_debug.html",
		now:     time.Now,
	}
}

// Handler returns the HTTP routes of the tool.
func (s *RegisterDebugServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	// API endpoint for live IMU data
	mux.HandleFunc("/api/imu", s.HandleIMUData)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, s.page)
	})
	return mux
}

// HandleWS handles the WebSocket connection for register debugging.
func (s *RegisterDebugServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("register_debug: websocket upgrade error")
		return
	}
	defer conn.Close()

	session := &registerDebugSession{srv: s, conn: conn}

	// Send register map on connection (MPU9250 by default)
	if err := session.sendRegisterMap("mpu9250"); err != nil {
		log.WithError(err).Warn("register_debug: error sending register map")
		return
	}

	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("register_debug: websocket error")
			}
			return
		}
		if cmd.Device == "" {
			cmd.Device = "mpu9250"
		}
		if err := session.dispatch(cmd); err != nil {
			log.WithError(err).Warn("register_debug: write response")
			return
		}
	}
}

type registerDebugSession struct {
	srv  *RegisterDebugServer
	conn *websocket.Conn
}

func (s *registerDebugSession) dispatch(cmd RegisterCmd) error {
	switch cmd.Action {
	case "get_map":
		return s.sendRegisterMap(cmd.Device)
	case "read":
		return s.handleRead(cmd)
	case "read_all":
		return s.handleReadAll(cmd)
	case "write":
		return s.handleWrite(cmd)
	case "init":
		return s.handleInit()
	case "export_config":
		return s.handleExportConfig(cmd)
	case "":
		return s.sendError("missing or invalid action field")
	default:
		return s.sendError(fmt.Sprintf("unknown action: %s", cmd.Action))
	}
}

func (s *registerDebugSession) handleRead(cmd RegisterCmd) error {
	if cmd.Address == "" {
		return s.sendError("missing addr field")
	}
	reg, err := parseHexByte(cmd.Address)
	if err != nil {
		return s.sendError(fmt.Sprintf("invalid address format: %s", cmd.Address))
	}

	value, err := s.srv.dev.ReadRegister(cmd.Device, reg)
	if err != nil {
		return s.sendError(fmt.Sprintf("read error: %v", err))
	}
	return s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    cmd.Device,
		IMU:       s.srv.dev.Name(),
		Address:   hexByte(reg),
		Value:     hexByte(value),
		Timestamp: s.srv.timestamp(),
	})
}

func (s *registerDebugSession) handleReadAll(cmd RegisterCmd) error {
	registers, err := s.srv.dev.ReadAllRegisters(cmd.Device)
	if err != nil {
		return s.sendError(fmt.Sprintf("read all error: %v", err))
	}
	return s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    cmd.Device,
		IMU:       s.srv.dev.Name(),
		Registers: hexRegisters(registers),
		Timestamp: s.srv.timestamp(),
	})
}

func (s *registerDebugSession) handleWrite(cmd RegisterCmd) error {
	if cmd.Address == "" || cmd.Value == "" {
		return s.sendError("missing addr or value field")
	}
	reg, err := parseHexByte(cmd.Address)
	if err != nil {
		return s.sendError(fmt.Sprintf("invalid address format: %s", cmd.Address))
	}
	value, err := parseHexByte(cmd.Value)
	if err != nil {
		return s.sendError(fmt.Sprintf("invalid value format: %s", cmd.Value))
	}

	chip, err := mpu9250.ParseChip(cmd.Device)
	if err != nil {
		return s.sendError(err.Error())
	}
	if chip == mpu9250.ChipMPU && !config.RegisterAllowed(s.srv.allowed, reg) {
		return s.sendError(fmt.Sprintf("register 0x%02X not in allowed write ranges", reg))
	}
	if err := s.srv.dev.WriteRegister(cmd.Device, reg, value); err != nil {
		return s.sendError(fmt.Sprintf("write error: %v", err))
	}

	return s.conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    cmd.Device,
		IMU:       s.srv.dev.Name(),
		Address:   hexByte(reg),
		Value:     hexByte(value),
		Timestamp: s.srv.timestamp(),
		Message:   "write successful",
	})
}

func (s *registerDebugSession) handleInit() error {
	if err := s.srv.dev.Reinitialize(); err != nil {
		return s.sendError(fmt.Sprintf("reinit error: %v", err))
	}
	return s.conn.WriteJSON(RegisterResponse{
		Type:    "status",
		IMU:     s.srv.dev.Name(),
		Status:  "initialized",
		Message: "IMU reinitialized successfully",
	})
}

func (s *registerDebugSession) handleExportConfig(cmd RegisterCmd) error {
	registers, err := s.srv.dev.ReadAllRegisters(cmd.Device)
	if err != nil {
		return s.sendError(fmt.Sprintf("export error: %v", err))
	}

	now := s.srv.now()
	configJSON, err := json.Marshal(RegisterConfigFile{
		Version:   1,
		IMU:       s.srv.dev.Name(),
		Device:    cmd.Device,
		Timestamp: now.Format(time.RFC3339),
		Registers: hexRegisters(registers),
	})
	if err != nil {
		return s.sendError(fmt.Sprintf("export error: %v", err))
	}
	return s.conn.WriteJSON(RegisterResponse{
		Type:     "export_config",
		Device:   cmd.Device,
		IMU:      s.srv.dev.Name(),
		Message:  "config exported",
		Config:   string(configJSON),
		Filename: fmt.Sprintf("%s_%s_registers.json", cmd.Device, now.Format("20060102_150405")),
	})
}

func (s *registerDebugSession) sendRegisterMap(device string) error {
	regMap, err := s.srv.dev.RegisterMap(device)
	if err != nil {
		return s.sendError(err.Error())
	}

	mapped := make([]RegisterInfo, len(regMap))
	for i, r := range regMap {
		mapped[i] = RegisterInfo{
			Address:     hexByte(r.Address),
			Name:        r.Name,
			Description: r.Description,
			Access:      r.Access,
			Default:     hexByte(r.Default),
			BitFields:   r.BitFields,
			FuseROM:     r.FuseROM,
		}
	}
	return s.conn.WriteJSON(RegisterResponse{
		Type:        "register_map",
		Device:      device,
		RegisterMap: mapped,
	})
}

func (s *registerDebugSession) sendError(message string) error {
	return s.conn.WriteJSON(RegisterResponse{
		Type:    "error",
		Message: message,
	})
}

// HandleIMUData serves one live IMU sample as JSON.
func (s *RegisterDebugServer) HandleIMUData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw, err := s.dev.ReadRaw()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := json.NewEncoder(w).Encode(raw); err != nil {
		log.WithError(err).Warn("register_debug: encode imu data")
	}
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *RegisterDebugServer) timestamp() string {
	return s.now().Format(time.RFC3339)
}

// parseHexByte parses a hex byte, with or without the 0x prefix.
func parseHexByte(s string) (byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 8)
	return byte(v), err
}

func hexByte(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}

func hexRegisters(regs map[byte]byte) map[string]string {
	out := make(map[string]string, len(regs))
	for addr, value := range regs {
		out[hexByte(addr)] = hexByte(value)
	}
	return out
}

// RunRegisterDebug opens the IMU and serves the register debug tool on
// cfg.RegisterDebugAddr until ctx is done.
func RunRegisterDebug(ctx context.Context, cfg *config.Config) error {
	log.Info("starting MPU9250 register debug tool")

	mgr, err := sensors.OpenIMUManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize IMU: %w", err)
	}
	defer mgr.Close()

	ln, err := net.Listen("tcp", cfg.RegisterDebugAddr)
	if err != nil {
		return fmt.Errorf("register debug listen: %w", err)
	}
	srv := &http.Server{
		Handler: NewRegisterDebugServer(mgr, cfg.RegisterDebugAllowedRanges).Handler(),
	}
	log.WithField("addr", ln.Addr().String()).Info("register debug tool listening")
	return serveUntilDone(ctx, srv, ln)
}

// serveUntilDone serves on ln until ctx is done or serving fails, whichever
// comes first.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("register debug serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("register_debug: shutdown")
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
