package transcripts

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/lecturecompanion/rag-engine/rag"
)

// Transcript is a parsed transcript file. SRT and VTT sources carry
// timestamped segments; TXT and PDF sources carry a single un-timestamped
// segment so downstream chunking takes the sentence-window path.
type Transcript struct {
	Source   string        `json:"source"`
	FileType Format        `json:"file_type"`
	Text     string        `json:"transcript_text"`
	Segments []rag.Segment `json:"segments"`
}

// Parse dispatches on the filename's extension.
func Parse(filename string, data []byte) (*Transcript, error) {
	switch format := DetectFormat(filename); format {
	case FormatTXT:
		return parseTXT(data), nil
	case FormatPDF:
		return parsePDF(data)
	case FormatSRT:
		return parseSRT(data)
	case FormatVTT:
		return parseVTT(data)
	default:
		return nil, fmt.Errorf("unsupported transcript format: %s", filename)
	}
}

func parseTXT(data []byte) *Transcript {
	text := string(data)
	return &Transcript{
		Source:   "uploaded_file",
		FileType: FormatTXT,
		Text:     text,
		Segments: []rag.Segment{{Text: text}},
	}
}

func parsePDF(data []byte) (*Transcript, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	text := buf.String()
	return &Transcript{
		Source:   "uploaded_file",
		FileType: FormatPDF,
		Text:     text,
		Segments: []rag.Segment{{Text: text}},
	}, nil
}

var srtTimeLine = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})[,.](\d{3})\s+-->\s+(\d{2}:\d{2}:\d{2})[,.](\d{3})`)

// parseSRT reads SubRip blocks: a sequence line, a timing line, then text
// lines until a blank line.
func parseSRT(data []byte) (*Transcript, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var segments []rag.Segment
	var texts []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := strconv.Atoi(line); err != nil {
			return nil, fmt.Errorf("srt format error: invalid sequence line: %q", line)
		}

		if !scanner.Scan() {
			return nil, fmt.Errorf("srt format error: missing timing line")
		}
		timing := strings.TrimSpace(scanner.Text())
		start, end, err := parseTimingLine(timing)
		if err != nil {
			return nil, err
		}

		var lines []string
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				break
			}
			lines = append(lines, text)
		}

		content := strings.Join(lines, " ")
		segments = append(segments, rag.Segment{Start: &start, End: &end, Text: content})
		texts = append(texts, content)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("srt format error: no caption blocks found")
	}

	return &Transcript{
		Source:   "uploaded_file",
		FileType: FormatSRT,
		Text:     strings.Join(texts, " "),
		Segments: segments,
	}, nil
}

// parseVTT reads WebVTT cues: after the WEBVTT header, each cue is a timing
// line (optionally preceded by an identifier) followed by text lines.
func parseVTT(data []byte) (*Transcript, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() || !strings.HasPrefix(strings.TrimSpace(scanner.Text()), "WEBVTT") {
		return nil, fmt.Errorf("vtt format error: missing WEBVTT header")
	}

	var segments []rag.Segment
	var texts []string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "NOTE") {
			continue
		}
		// Cue identifiers are optional; the timing line always contains -->.
		if !strings.Contains(line, "-->") {
			if !scanner.Scan() {
				break
			}
			line = strings.TrimSpace(scanner.Text())
			if !strings.Contains(line, "-->") {
				continue
			}
		}

		start, end, err := parseTimingLine(line)
		if err != nil {
			return nil, err
		}

		var lines []string
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				break
			}
			lines = append(lines, text)
		}

		content := strings.Join(lines, " ")
		segments = append(segments, rag.Segment{Start: &start, End: &end, Text: content})
		texts = append(texts, content)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vtt: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("vtt format error: no cues found")
	}

	return &Transcript{
		Source:   "uploaded_file",
		FileType: FormatVTT,
		Text:     strings.Join(texts, " "),
		Segments: segments,
	}, nil
}

// parseTimingLine handles both SRT (comma millis) and VTT (dot millis) cue
// timings, with an optional hours field in VTT.
func parseTimingLine(line string) (start, end float64, err error) {
	if m := srtTimeLine.FindStringSubmatch(line); m != nil {
		start = clockToSeconds(m[1], m[2])
		end = clockToSeconds(m[3], m[4])
		return start, end, nil
	}

	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line: %q", line)
	}
	start, err = vttTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	// Cue settings may trail the end timestamp.
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line: %q", line)
	}
	end, err = vttTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func clockToSeconds(clock, millis string) float64 {
	fields := strings.Split(clock, ":")
	hours, _ := strconv.Atoi(fields[0])
	minutes, _ := strconv.Atoi(fields[1])
	seconds, _ := strconv.Atoi(fields[2])
	ms, _ := strconv.Atoi(millis)
	return float64(hours*3600+minutes*60+seconds) + float64(ms)/1000
}

func vttTimestamp(value string) (float64, error) {
	fields := strings.Split(value, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return 0, fmt.Errorf("invalid timestamp: %q", value)
	}

	secondsField := fields[len(fields)-1]
	seconds, err := strconv.ParseFloat(strings.ReplaceAll(secondsField, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %q", value)
	}

	minutes, err := strconv.Atoi(fields[len(fields)-2])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %q", value)
	}

	hours := 0
	if len(fields) == 3 {
		hours, err = strconv.Atoi(fields[0])
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp: %q", value)
		}
	}

	return float64(hours*3600+minutes*60) + seconds, nil
}
