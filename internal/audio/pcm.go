// Package audio декодирует аудио-ответы AI бэкенда.
//
// Бэкенд возвращает речь как base64 от сырых PCM сэмплов: signed 16-bit
// little-endian, моно, 24 кГц. Декодирование восстанавливает float32 буфер
// на канал делением каждого сэмпла на 32768.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

// SampleRate - частота дискретизации речи бэкенда (задокументированный формат).
const SampleRate = 24000

// Channels - бэкенд отдаёт моно.
const Channels = 1

var (
	ErrEmptyPayload   = errors.New("audio payload is empty")
	ErrOddPayloadSize = errors.New("audio payload size is not a multiple of the sample size")
)

// Buffer - декодированный аудио-буфер.
type Buffer struct {
	// Raw - исходные PCM16 байты (для передачи клиенту как есть).
	Raw []byte
	// Channels - float32 сэмплы по каналам после деинтерливинга.
	Channels [][]float32
	// SampleRate в Гц.
	SampleRate int
}

// DecodeBase64PCM16 декодирует base64-строку PCM16LE в Buffer.
func DecodeBase64PCM16(payload string, sampleRate, numChannels int) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	return DecodePCM16(raw, sampleRate, numChannels)
}

// DecodePCM16 декодирует сырые PCM16LE байты в float32 буферы по каналам.
func DecodePCM16(raw []byte, sampleRate, numChannels int) (*Buffer, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	if len(raw)%(2*numChannels) != 0 {
		return nil, ErrOddPayloadSize
	}

	sampleCount := len(raw) / 2
	frameCount := sampleCount / numChannels

	channels := make([][]float32, numChannels)
	for ch := range channels {
		channels[ch] = make([]float32, frameCount)
	}

	for i := 0; i < frameCount; i++ {
		for ch := 0; ch < numChannels; ch++ {
			idx := (i*numChannels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(raw[idx:]))
			channels[ch][i] = float32(sample) / 32768.0
		}
	}

	return &Buffer{Raw: raw, Channels: channels, SampleRate: sampleRate}, nil
}

// Frames возвращает число фреймов буфера.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration возвращает длительность воспроизведения буфера.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}
