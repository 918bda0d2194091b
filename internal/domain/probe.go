package domain

import (
	"fmt"
	"strconv"
	"strings"
)

type ProbeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

type ProbeStream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
}

type ProbeResult struct {
	Format  ProbeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

const (
	oneKilobyte = 1024
	oneMegabyte = oneKilobyte * 1024
	oneGigabyte = oneMegabyte * 1024
	oneTerabyte = oneGigabyte * 1024
)

// Codec returns the codec label of the first reported stream, which is the
// stream with the lowest index. Empty when nothing was reported.
func (p *ProbeResult) Codec() string {
	if p == nil || len(p.Streams) == 0 {
		return ""
	}
	first := p.Streams[0]
	for _, s := range p.Streams[1:] {
		if s.Index < first.Index {
			first = s
		}
	}
	return strings.TrimSpace(first.CodecName)
}

func (p *ProbeResult) Duration() float64 {
	if p == nil {
		return 0
	}
	return ParseDuration(p.Format.Duration)
}

func (p *ProbeResult) Size() int64 {
	if p == nil {
		return 0
	}
	return ParseSize(p.Format.Size)
}

func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "00:00"
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := int(seconds) % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

func ParseSize(sizeStr string) int64 {
	if sizeStr == "" {
		return 0
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 10, 64)
	if err != nil {
		return 0
	}
	return size
}

func ParseDuration(durationStr string) float64 {
	if durationStr == "" || durationStr == "N/A" {
		return 0
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64)
	if err != nil {
		return 0
	}
	return duration
}

func FormatSize(bytes int64) string {
	if bytes < oneKilobyte {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < oneMegabyte {
		return fmt.Sprintf("%.1f KB", float64(bytes)/oneKilobyte)
	}
	if bytes < oneGigabyte {
		return fmt.Sprintf("%.1f MB", float64(bytes)/oneMegabyte)
	}
	if bytes < oneTerabyte {
		return fmt.Sprintf("%.1f GB", float64(bytes)/oneGigabyte)
	}
	return fmt.Sprintf("%.1f TB", float64(bytes)/oneTerabyte)
}
