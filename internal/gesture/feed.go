package gesture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/annel0/tower-stacker/internal/logging"
)

// Frame - одна строка ленты внешнего трекера рук (JSON lines):
//
//	{"t": 1712345678901, "hands": [[{"x":0.5,"y":0.6}, ...21 точка]]}
//
// t - unix-время кадра в миллисекундах; 0 - время получения.
type Frame struct {
	TimestampMs int64        `json:"t,omitempty"`
	Hands       [][]Landmark `json:"hands"`
}

// FeedReader читает ленту кадров и передаёт руки в Recognizer.
type FeedReader struct {
	src io.Reader
	rec *Recognizer
	now func() time.Time

	frames  int
	skipped int
}

// NewFeedReader создаёт читатель ленты.
func NewFeedReader(src io.Reader, rec *Recognizer) *FeedReader {
	return &FeedReader{src: src, rec: rec, now: time.Now}
}

// Run читает ленту до EOF или отмены ctx. Некорректные строки пропускаются.
// Отмена проверяется между строками: блокирующее чтение не прерывается.
func (f *FeedReader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(f.src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var fr Frame
		if err := json.Unmarshal(line, &fr); err != nil {
			f.skipped++
			logging.Debug("✋ Пропущен кадр жестов #%d: %v", f.frames+f.skipped, err)
			continue
		}
		f.frames++

		at := f.now()
		if fr.TimestampMs > 0 {
			at = time.UnixMilli(fr.TimestampMs)
		}
		// одна команда на кадр, даже если в кадре две руки
		for _, hand := range fr.Hands {
			if f.rec.Observe(at, hand) {
				logging.Debug("✊ Кулак распознан, кадр #%d", f.frames)
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("лента жестов: %w", err)
	}
	return nil
}

// Stats возвращает число принятых и пропущенных кадров.
func (f *FeedReader) Stats() (frames, skipped int) {
	return f.frames, f.skipped
}
