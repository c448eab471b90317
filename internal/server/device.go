package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	devicedomain "github.com/mediasign/licenza/internal/device/domain"
)

type userDevicesResponse struct {
	Devices []userDeviceView `json:"devices"`
}

type userDeviceView struct {
	devicedomain.Device
	LicenceActive bool `json:"licence_active"`
}

// ListUserDevices serves the device picker used to assemble a batch.
func (s *Server) ListUserDevices(c *gin.Context) {
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_user_id", "invalid user id"))
		return
	}

	devices, err := s.deviceRepo.ListByUser(c.Request.Context(), s.db, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now()
	resp := userDevicesResponse{Devices: make([]userDeviceView, 0, len(devices))}
	for _, device := range devices {
		resp.Devices = append(resp.Devices, userDeviceView{
			Device:        device,
			LicenceActive: device.LicenceActive(now),
		})
	}

	c.JSON(http.StatusOK, resp)
}
