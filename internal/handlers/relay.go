package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ktp-deploy/internal/config"
	"ktp-deploy/internal/model"
	"ktp-deploy/pkg/utils"
)

const restartTimeout = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RelayHandler forwards authenticated commands to long-running HLTV
// processes: FIFO writes for console commands, systemctl for restarts.
// It runs on the data server and is operationally independent of the
// deployment orchestrator.
type RelayHandler struct {
	cfg    config.RelayConfig
	logger *zap.Logger
}

func NewRelayHandler(cfg config.RelayConfig, logger *zap.Logger) *RelayHandler {
	return &RelayHandler{cfg: cfg, logger: logger}
}

// AuthMiddleware rejects requests without the shared X-Auth-Key header.
func (h *RelayHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.cfg.AuthKey == "" || c.GetHeader("X-Auth-Key") != h.cfg.AuthKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *RelayHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Command writes a console command into the instance's FIFO pipe. The body is
// either {"command": "..."} or the raw command text.
func (h *RelayHandler) Command(c *gin.Context) {
	port, ok := h.instancePort(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "No command provided"})
		return
	}

	var req model.CommandRequest
	command := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &req); err == nil && req.Command != "" {
		command = strings.TrimSpace(req.Command)
	}
	if command == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Empty command"})
		return
	}

	pipePath := fmt.Sprintf("%s/hltv-%d.pipe", h.cfg.PipeDir, port)
	if _, err := os.Stat(pipePath); err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Pipe not found: " + pipePath})
		return
	}

	pipe, err := os.OpenFile(pipePath, os.O_WRONLY, 0)
	if err != nil {
		h.logger.Error("open pipe failed", zap.String("pipe", pipePath), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	defer pipe.Close()

	if _, err := pipe.WriteString(command + "\n"); err != nil {
		h.logger.Error("pipe write failed", zap.String("pipe", pipePath), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	h.logger.Info("command relayed", zap.Int("port", port), zap.String("command", command))
	c.JSON(http.StatusOK, model.CommandResponse{Success: true, Port: port, Command: command})
}

// Restart restarts one HLTV instance via its systemd unit.
func (h *RelayHandler) Restart(c *gin.Context) {
	port, ok := h.instancePort(c)
	if !ok {
		return
	}

	unit := fmt.Sprintf("hltv@%d", port)
	h.logger.Info("restarting instance", zap.String("unit", unit))

	ctx, cancel := context.WithTimeout(c.Request.Context(), restartTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "systemctl", "restart", unit).CombinedOutput()
	if err != nil {
		h.logger.Error("restart failed", zap.String("unit", unit),
			zap.String("output", string(out)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error: fmt.Sprintf("restart %s failed: %v", unit, err),
		})
		return
	}

	c.JSON(http.StatusOK, model.CommandResponse{
		Success: true,
		Port:    port,
		Message: fmt.Sprintf("HLTV %d restarted successfully", port),
	})
}

// Console upgrades to a websocket and streams lines appended to the
// instance's log file until the client goes away.
func (h *RelayHandler) Console(c *gin.Context) {
	port, ok := h.instancePort(c)
	if !ok {
		return
	}

	logPath := fmt.Sprintf("%s/hltv-%d.log", h.cfg.LogDir, port)
	file, err := os.Open(logPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Log not found: " + logPath})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		file.Close()
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	go func() {
		defer ws.Close()
		defer file.Close()

		// Start from the end of the log; only new output is streamed.
		if _, err := file.Seek(0, io.SeekEnd); err != nil {
			return
		}

		reader := bufio.NewReader(file)
		var pending string
		for {
			chunk, err := reader.ReadString('\n')
			pending += chunk
			if err != nil {
				// Incomplete line; wait for the process to finish writing it.
				select {
				case <-c.Request.Context().Done():
					return
				case <-time.After(500 * time.Millisecond):
					continue
				}
			}
			line := strings.TrimRight(pending, "\n")
			pending = ""
			if err := ws.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				h.logger.Warn("websocket write error", zap.Error(err))
				return
			}
		}
	}()
}

func (h *RelayHandler) instancePort(c *gin.Context) (int, bool) {
	port, err := utils.ParsePort(c.Param("port"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid port number"})
		return 0, false
	}
	if err := utils.ValidateInstancePort(port, h.cfg.MinInstancePort, h.cfg.MaxInstancePort); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: model.Title(err.Error())})
		return 0, false
	}
	return port, true
}
