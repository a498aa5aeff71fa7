// Package confirmation renders reservation confirmations as QR codes whose
// payload is encrypted with the service secret.
package confirmation

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"ms-seating/internal/models"
)

const qrSize = 256

// Payload is what a door scanner recovers from a confirmation QR code.
type Payload struct {
	ReservationID string         `json:"reservation_id"`
	EventID       int64          `json:"event_id"`
	CustomerEmail string         `json:"customer_email"`
	SeatMap       models.SeatMap `json:"seat_map"`
}

func PayloadFor(r *models.Reservation) Payload {
	return Payload{
		ReservationID: r.ID,
		EventID:       r.EventID,
		CustomerEmail: r.CustomerEmail,
		SeatMap:       r.SeatMap,
	}
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// Encrypt returns the URL-safe base64 text that is embedded in the QR code.
func (q *QRGenerator) Encrypt(p Payload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// GenerateEncryptedQR renders the reservation as a PNG QR code.
func (q *QRGenerator) GenerateEncryptedQR(r *models.Reservation) ([]byte, error) {
	encrypted, err := q.Encrypt(PayloadFor(r))
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(encrypted, qrcode.Medium, qrSize)
}

// Decrypt reverses Encrypt. It fails on text produced with another secret.
func (q *QRGenerator) Decrypt(encrypted string) (*Payload, error) {
	data, err := decryptAES(encrypted, q.secret)
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid confirmation payload: %w", err)
	}
	return &p, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(encoded string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid confirmation encoding: %w", err)
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, errors.New("confirmation text too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(data, ciphertext[aes.BlockSize:])
	return data, nil
}
