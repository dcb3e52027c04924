package handler

import (
	"encoding/base64"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRHandler кодирует адрес фронтенда в локальной сети как QR-код,
// чтобы открыть сервис с телефона
type QRHandler struct {
	frontendURL string
}

func NewQRHandler(frontendURL string) *QRHandler {
	return &QRHandler{frontendURL: frontendURL}
}

type qrResponse struct {
	QRCodeURL  string `json:"qrCodeUrl"`
	NetworkURL string `json:"networkUrl"`
}

// GenerateQR отдает PNG data-URL с сетевым адресом: GET /api/qr
func (h *QRHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	networkURL := strings.Replace(h.frontendURL, "localhost", localIPAddress(), 1)

	png, err := qrcode.Encode(networkURL, qrcode.Medium, qrSize)
	if err != nil {
		log.Printf("[GenerateQR] Failed to encode %s: %v", networkURL, err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Msg: "Server Error"})
		return
	}

	respondJSON(w, http.StatusOK, qrResponse{
		QRCodeURL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		NetworkURL: networkURL,
	})
}

// localIPAddress возвращает первый внешний IPv4 адрес хоста
func localIPAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "localhost"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "localhost"
}
