package domain

import "time"

// Source источник сигнала о дате регистрации
type Source string

const (
	SourceProfilePhotoExif Source = "profile_photo_exif"
	SourceEarliestMessage  Source = "earliest_message"
	SourceTmePost          Source = "tme_post"
	SourcePhotoUpload      Source = "photo_upload"
	SourceAnchors          Source = "anchors"
)

// SourceInfo описывает вес и подписи источника
type SourceInfo struct {
	Source      Source
	Explanation string
	Label       string
	Level       string
	Confidence  float64
}

// Priority источники от самого надёжного к наименее надёжному
var Priority = []SourceInfo{
	{SourceProfilePhotoExif, "Earliest profile photo EXIF (high confidence)", "Profile photo EXIF", "high", 0.9},
	{SourceEarliestMessage, "Earliest message found in shared dialogs (medium-high confidence)", "Earliest message (history scan)", "medium-high", 0.75},
	{SourceTmePost, "Earliest public t.me post (medium confidence)", "Earliest public t.me post", "medium", 0.6},
	{SourcePhotoUpload, "Earliest profile photo upload date (medium-low confidence)", "Profile photo uploaded", "medium-low", 0.5},
	{SourceAnchors, "Anchors interpolation (low confidence)", "Anchors estimate", "low", 0.35},
}

const NoSignalExplanation = "No usable signal found"

// Estimate итоговая оценка
type Estimate struct {
	Time        time.Time `json:"time"`
	Source      Source    `json:"source,omitempty"`
	Explanation string    `json:"explanation"`
	Confidence  float64   `json:"confidence"`
}

// Found сообщает, удалось ли что-то оценить
func (e Estimate) Found() bool {
	return !e.Time.IsZero()
}

// ChooseFinal выбирает первый присутствующий сигнал в порядке Priority
func ChooseFinal(signals map[Source]time.Time) Estimate {
	for _, info := range Priority {
		if ts, ok := signals[info.Source]; ok && !ts.IsZero() {
			return Estimate{
				Time:        ts,
				Source:      info.Source,
				Explanation: info.Explanation,
				Confidence:  info.Confidence,
			}
		}
	}
	return Estimate{Explanation: NoSignalExplanation}
}

// Report результат проверки, кэшируется целиком
type Report struct {
	RequestID   string               `json:"request_id"`
	Entity      Entity               `json:"entity"`
	DC          int                  `json:"dc"`
	Signals     map[Source]time.Time `json:"signals"`
	Final       Estimate             `json:"final"`
	GeneratedAt time.Time            `json:"generated_at"`
	Cached      bool                 `json:"-"`
}
