package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

const (
	// Interleaved samples per channel read per WAV chunk
	bufferSize = 65536

	// Sample format constants
	bitsPerSample16 = 16
	bitsPerSample24 = 24
	bitsPerSample32 = 32

	// Conversion constants
	maxInt16 = 32767.0
	maxInt24 = 8388607.0
	maxInt32 = 2147483647.0

	// WAV format constants
	wavHeaderSize      = 44 // Total WAV header size in bytes
	wavRiffHeaderSize  = 36 // RIFF header size (file size - 8 = riffHeaderSize + dataSize)
	wavPCMSubchunkSize = 16 // fmt subchunk size for PCM format
	wavFileSizeOffset  = 4  // Byte offset for file size field in header
	wavDataSizeOffset  = 40 // Byte offset for data size field in header

	// Byte sizes for PCM sample formats
	bytesPerSample16 = 2
	bytesPerSample24 = 3
	bytesPerSample32 = 4
	bitsPerByte      = 8

	// Bit shift amounts for 24-bit sample encoding
	bitShift8  = 8
	bitShift16 = 16

	// I/O buffer sizes
	wavWriterBufferSize = 256 * 1024 // 256KB write buffer
	uint32Size          = 4
)

// audioFile is decoded audio normalised to [-1, 1], one slice per channel.
type audioFile struct {
	planar   [][]float64
	rate     int
	bitDepth int
}

func (a *audioFile) channels() int { return len(a.planar) }

func (a *audioFile) samples() int {
	if len(a.planar) == 0 {
		return 0
	}
	return len(a.planar[0])
}

// readAudio decodes a WAV or FLAC file, chosen by extension.
func readAudio(path string) (*audioFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return readFLAC(path)
	default:
		return readWAV(path)
	}
}

// readWAV decodes a PCM WAV file.
func readWAV(path string) (*audioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	format := decoder.Format()
	channels := format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid WAV file: %s has no channels", path)
	}
	bitDepth := int(decoder.BitDepth)
	invMaxVal := 1 / getMaxValue(bitDepth)

	planar := make([][]float64, channels)
	buf := &audio.IntBuffer{
		Format:         format,
		Data:           make([]int, bufferSize*channels),
		SourceBitDepth: bitDepth,
	}
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		if n == 0 {
			break
		}
		for ch, samples := range deinterleave(buf.Data[:n], channels, invMaxVal) {
			planar[ch] = append(planar[ch], samples...)
		}
	}

	return &audioFile{planar: planar, rate: format.SampleRate, bitDepth: bitDepth}, nil
}

// readFLAC decodes a FLAC file frame by frame.
func readFLAC(path string) (*audioFile, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("invalid FLAC file: %w", err)
	}
	defer func() { _ = stream.Close() }()

	channels := int(stream.Info.NChannels)
	bitDepth := int(stream.Info.BitsPerSample)
	invMaxVal := 1 / float64(int64(1)<<(bitDepth-1))

	planar := make([][]float64, channels)
	for ch := range planar {
		planar[ch] = make([]float64, 0, stream.Info.NSamples)
	}
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read audio data: %w", err)
		}
		for ch, sub := range frame.Subframes {
			for _, s := range sub.Samples {
				planar[ch] = append(planar[ch], float64(s)*invMaxVal)
			}
		}
	}

	return &audioFile{planar: planar, rate: int(stream.Info.SampleRate), bitDepth: bitDepth}, nil
}

// writeWAV writes planar audio as PCM WAV. Bit depths other than 16, 24 and
// 32 are written as 16-bit.
func writeWAV(path string, planar [][]float64, rate, bitDepth int) (err error) {
	switch bitDepth {
	case bitsPerSample16, bitsPerSample24, bitsPerSample32:
	default:
		bitDepth = bitsPerSample16
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	w, err := newFastWAVWriter(f, rate, bitDepth, len(planar))
	if err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := w.WriteSamples(interleave(planar, getMaxValue(bitDepth))); err != nil {
		return fmt.Errorf("failed to write audio data: %w", err)
	}
	return w.Close()
}

// getMaxValue returns the maximum sample value for the given bit depth.
func getMaxValue(bitDepth int) float64 {
	switch bitDepth {
	case bitsPerSample16:
		return maxInt16
	case bitsPerSample24:
		return maxInt24
	case bitsPerSample32:
		return maxInt32
	default:
		return maxInt16
	}
}

// deinterleave converts interleaved int samples to per-channel floats
// scaled by invMaxVal. A trailing partial frame is dropped.
func deinterleave(data []int, channels int, invMaxVal float64) [][]float64 {
	n := len(data) / channels
	planar := make([][]float64, channels)
	for ch := range planar {
		planar[ch] = make([]float64, n)
	}
	for i := range n {
		base := i * channels
		for ch := range channels {
			planar[ch][i] = float64(data[base+ch]) * invMaxVal
		}
	}
	return planar
}

// interleave converts per-channel floats to interleaved int samples,
// clamping to [-1, 1] before scaling by maxVal.
func interleave(planar [][]float64, maxVal float64) []int {
	if len(planar) == 0 || len(planar[0]) == 0 {
		return nil
	}
	channels := len(planar)
	n := len(planar[0])
	out := make([]int, n*channels)
	for i := range n {
		base := i * channels
		for ch := range channels {
			s := max(-1, min(1, planar[ch][i]))
			out[base+ch] = int(s * maxVal)
		}
	}
	return out
}

// fastWAVWriter writes PCM data directly without per-sample allocations.
type fastWAVWriter struct {
	w          *bufio.Writer
	f          *os.File
	sampleRate int
	bitDepth   int
	channels   int
	dataSize   uint32
	byteBuf    []byte
}

func newFastWAVWriter(f *os.File, sampleRate, bitDepth, channels int) (*fastWAVWriter, error) {
	w := &fastWAVWriter{
		w:          bufio.NewWriterSize(f, wavWriterBufferSize),
		f:          f,
		sampleRate: sampleRate,
		bitDepth:   bitDepth,
		channels:   channels,
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *fastWAVWriter) writeHeader() error {
	byteRate := w.sampleRate * w.channels * (w.bitDepth / bitsPerByte)
	blockAlign := w.channels * (w.bitDepth / bitsPerByte)

	header := make([]byte, wavHeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 0) // patched by Close
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(w.bitDepth))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched by Close

	_, err := w.w.Write(header)
	return err
}

// WriteSamples encodes interleaved samples at the writer's bit depth.
func (w *fastWAVWriter) WriteSamples(samples []int) error {
	width := w.bitDepth / bitsPerByte
	needed := len(samples) * width
	if len(w.byteBuf) < needed {
		w.byteBuf = make([]byte, needed)
	}
	buf := w.byteBuf[:needed]

	switch w.bitDepth {
	case bitsPerSample24:
		for i, s := range samples {
			buf[i*bytesPerSample24] = byte(s)
			buf[i*bytesPerSample24+1] = byte(s >> bitShift8)
			buf[i*bytesPerSample24+2] = byte(s >> bitShift16)
		}
	case bitsPerSample32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(buf[i*bytesPerSample32:], uint32(int32(s)))
		}
	default:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(buf[i*bytesPerSample16:], uint16(int16(s)))
		}
	}

	written, err := w.w.Write(buf)
	w.dataSize += uint32(written)
	return err
}

// Close flushes the buffer and patches the RIFF and data sizes.
func (w *fastWAVWriter) Close() error {
	if err := w.w.Flush(); err != nil {
		return err
	}

	sizeBytes := make([]byte, uint32Size)
	binary.LittleEndian.PutUint32(sizeBytes, wavRiffHeaderSize+w.dataSize)
	if _, err := w.f.WriteAt(sizeBytes, wavFileSizeOffset); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sizeBytes, w.dataSize)
	_, err := w.f.WriteAt(sizeBytes, wavDataSizeOffset)
	return err
}
