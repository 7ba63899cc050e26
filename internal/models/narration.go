package models

import "time"

// NarrationStatus - состояние машины озвучивания абзаца.
type NarrationStatus string

const (
	NarrationStatusLoading NarrationStatus = "loading"
	NarrationStatusPlaying NarrationStatus = "playing"
	NarrationStatusError   NarrationStatus = "error"
)

// NarrationAudio - декодированный аудио-ресурс озвучки.
// Raw хранит исходные PCM16 байты для отдачи клиенту,
// Channels - float32 сэмплы по каналам (после деинтерливинга).
type NarrationAudio struct {
	Raw        []byte
	Channels   [][]float32
	SampleRate int
	Duration   time.Duration
}

// NarrationState - текущее озвучивание сессии. Инвариант: в один момент
// времени существует не более одного NarrationState на сессию; запуск новой
// озвучки сначала останавливает предыдущую и освобождает её ресурсы.
type NarrationState struct {
	BlockID string          `json:"blockId"`
	Status  NarrationStatus `json:"status"`
	Audio   *NarrationAudio `json:"-"`
}
