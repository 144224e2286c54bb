package main

import (
	"bufio"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/x448/float16"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	autoencoder "github.com/tphakala/go-audio-autoencoder"
)

const (
	// inspectFrames is the latent length of the silent inspect input.
	inspectFrames = 16

	// paramGroupDepth is the number of name components grouped by inspect.
	paramGroupDepth = 3

	// latentMagic starts every file written by encode.
	latentMagic = "AEL1"

	reconSuffix = "_recon.wav"
)

func newInspectCmd(g *globalFlags) *cobra.Command {
	var input string
	var channels int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print activation shapes and parameter counts of the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var planar [][]float64
			if input != "" {
				a, err := readAudio(input)
				if err != nil {
					return err
				}
				planar = a.planar
				channels = a.channels()
			}

			cfg, err := g.autoEncoderConfig(channels)
			if err != nil {
				return err
			}
			ae, err := buildAutoEncoder(cfg)
			if err != nil {
				return err
			}
			df := ae.DownsampleFactor()

			var x *autoencoder.Tensor
			if planar != nil {
				n := len(planar[0]) / df * df
				if n == 0 {
					return fmt.Errorf("%s: %d samples is shorter than the downsample factor %d", input, len(planar[0]), df)
				}
				for c := range planar {
					planar[c] = planar[c][:n]
				}
				if x, err = autoencoder.FromChannels(planar); err != nil {
					return err
				}
			} else if x, err = autoencoder.NewTensor(1, cfg.InChannels, inspectFrames*df); err != nil {
				return err
			}

			_, info, err := ae.Forward(g.pass(), x)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderActivations(out, info)
			fmt.Fprintln(out)
			renderParameters(out, ae.Parameters())
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "audio file to run instead of silence")
	cmd.Flags().IntVar(&channels, "channels", 0, "audio channels of the default model")
	return cmd
}

// renderActivations prints the encoder and decoder activation shapes.
func renderActivations(w io.Writer, info autoencoder.Info) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"MODULE", "INDEX", "SHAPE"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, module := range []string{autoencoder.PrefixEncoder, autoencoder.PrefixDecoder} {
		xs, _ := info.Tensors(module + autoencoder.KeyXs)
		for i, x := range xs {
			table.Append([]string{strings.TrimSuffix(module, "_"), strconv.Itoa(i), fmt.Sprint(x.Shape())})
		}
	}
	if z, ok := info.Tensor(autoencoder.KeyLatent); ok {
		table.Append([]string{"latent", "", fmt.Sprint(z.Shape())})
	}
	table.Render()
}

// renderParameters prints parameter counts grouped by name prefix.
func renderParameters(w io.Writer, ps []autoencoder.Parameter) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"PARAMETERS", "COUNT"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	groups, counts := groupParameters(ps, paramGroupDepth)
	for _, name := range groups {
		table.Append([]string{name, strconv.Itoa(counts[name])})
	}
	table.SetFooter([]string{"TOTAL", strconv.Itoa(autoencoder.NumParameters(ps))})
	table.Render()
}

// groupParameters sums parameter sizes by the first depth components of
// their names, keeping first-seen order.
func groupParameters(ps []autoencoder.Parameter, depth int) ([]string, map[string]int) {
	var order []string
	counts := make(map[string]int)
	for _, p := range ps {
		parts := strings.Split(p.Name, ".")
		key := strings.Join(parts[:min(depth, len(parts))], ".")
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key] += p.Value.Len()
	}
	return order, counts
}

func newReconstructCmd(g *globalFlags) *cobra.Command {
	var outDir string
	var jobs int

	cmd := &cobra.Command{
		Use:   "reconstruct input...",
		Short: "Run audio files through the autoencoder and write WAV output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var eg errgroup.Group
			eg.SetLimit(max(jobs, 1))
			for _, path := range args {
				eg.Go(func() error {
					return g.reconstructFile(path, reconstructPath(outDir, path))
				})
			}
			return eg.Wait()
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", ".", "output directory")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files processed concurrently")
	return cmd
}

// reconstructPath names the output of input inside dir.
func reconstructPath(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+reconSuffix)
}

func (g *globalFlags) reconstructFile(input, output string) error {
	log := logrus.WithField("file", input)

	a, err := readAudio(input)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"rate":      a.rate,
		"channels":  a.channels(),
		"bit_depth": a.bitDepth,
		"samples":   a.samples(),
	}).Debug("decoded input")

	cfg, err := g.autoEncoderConfig(a.channels())
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	ae, err := buildAutoEncoder(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	y, err := autoencoder.Reconstruct(g.pass(), ae, a.planar)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	if err := writeWAV(output, y, a.rate, a.bitDepth); err != nil {
		return fmt.Errorf("%s: %w", output, err)
	}

	log.WithFields(logrus.Fields{
		"output":  output,
		"nmse_db": fmt.Sprintf("%.2f", nmseDB(a.planar, y)),
	}).Info("reconstructed")
	return nil
}

// nmseDB returns the normalised mean squared error of got against ref in
// decibels.
func nmseDB(ref, got [][]float64) float64 {
	var noise, signal float64
	for c := range ref {
		n := min(len(ref[c]), len(got[c]))
		diff := make([]float64, n)
		floats.SubTo(diff, ref[c][:n], got[c][:n])
		noise += floats.Dot(diff, diff)
		signal += floats.Dot(ref[c][:n], ref[c][:n])
	}
	switch {
	case noise == 0:
		return math.Inf(-1)
	case signal == 0:
		return math.Inf(1)
	}
	return 10 * math.Log10(noise/signal)
}

func newSTFTCmd(g *globalFlags) *cobra.Command {
	var override autoencoder.STFTConfig

	cmd := &cobra.Command{
		Use:   "stft input",
		Short: "Run an STFT analysis/synthesis round trip and report the error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.stftConfig()
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("n-fft") {
				cfg.NumFFT = override.NumFFT
			}
			if fl.Changed("hop") {
				cfg.HopLength = override.HopLength
			}
			if fl.Changed("window") {
				cfg.Window = override.Window
			}
			if fl.Changed("complex") {
				cfg.UseComplex = override.UseComplex
			}

			a, err := readAudio(args[0])
			if err != nil {
				return err
			}
			if cfg.Length == 0 {
				cfg.Length = a.samples()
			}
			s, err := autoencoder.NewSTFT(cfg)
			if err != nil {
				return err
			}

			x, err := autoencoder.FromChannels(a.planar)
			if err != nil {
				return err
			}
			m, p, err := s.Encode(x)
			if err != nil {
				return err
			}
			y, err := s.Decode(m, p)
			if err != nil {
				return err
			}
			planar, err := autoencoder.ToChannels(y, 0)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "bins=%d frames=%d hop=%d nmse=%.2f dB\n",
				s.Bins(), m.Dim(3), s.HopLength(), nmseDB(a.planar, planar))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&override.NumFFT, "n-fft", "n", 0, "FFT size")
	fl.IntVar(&override.HopLength, "hop", 0, "hop length")
	fl.StringVar(&override.Window, "window", autoencoder.WindowHann, "analysis window (hann or kaiser)")
	fl.BoolVar(&override.UseComplex, "complex", false, "use real/imaginary instead of magnitude/phase")
	return cmd
}

func newMelCmd(g *globalFlags) *cobra.Command {
	var override autoencoder.MelConfig
	var output string

	cmd := &cobra.Command{
		Use:   "mel input",
		Short: "Write the mel spectrogram of a file as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := g.melConfig()
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("n-mels") {
				cfg.NMelChannels = override.NMelChannels
			}
			if fl.Changed("n-fft") {
				cfg.NFFT = override.NFFT
			}
			if fl.Changed("hop") {
				cfg.HopLength = override.HopLength
			}
			cfg.Center = cfg.Center || override.Center
			cfg.Normalize = cfg.Normalize || override.Normalize
			cfg.NormalizeLog = cfg.NormalizeLog || override.NormalizeLog

			a, err := readAudio(args[0])
			if err != nil {
				return err
			}
			if cfg.SampleRate == 0 {
				cfg.SampleRate = a.rate
			}
			m, err := autoencoder.NewMelSpectrogram(cfg)
			if err != nil {
				return err
			}
			x, err := autoencoder.FromChannels(a.planar)
			if err != nil {
				return err
			}
			spec, err := m.Forward(x)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if closeErr := f.Close(); err == nil {
						err = closeErr
					}
				}()
				w = f
			}
			logrus.WithFields(logrus.Fields{
				"file":   args[0],
				"mels":   spec.Dim(2),
				"frames": spec.Dim(3),
			}).Debug("computed mel spectrogram")
			return writeMelCSV(w, spec)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&override.NMelChannels, "n-mels", 0, "mel channels")
	fl.IntVarP(&override.NFFT, "n-fft", "n", 0, "FFT size")
	fl.IntVar(&override.HopLength, "hop", 0, "hop length")
	fl.BoolVar(&override.Center, "center", false, "reflect-pad by half an FFT on both sides")
	fl.BoolVar(&override.Normalize, "normalize", false, "power-law normalise to [-1, 1]")
	fl.BoolVar(&override.NormalizeLog, "log", false, "natural log with a 1e-5 floor")
	fl.StringVarP(&output, "output", "o", "", "CSV output file (default stdout)")
	return cmd
}

// writeMelCSV writes one row per channel and frame of a [1, c, mels, frames]
// spectrogram.
func writeMelCSV(w io.Writer, spec *autoencoder.Tensor) error {
	channels, mels, frames := spec.Dim(1), spec.Dim(2), spec.Dim(3)
	cw := csv.NewWriter(w)

	header := make([]string, 0, mels+2)
	header = append(header, "channel", "frame")
	for m := range mels {
		header = append(header, "mel_"+strconv.Itoa(m))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, mels+2)
	for c := range channels {
		for f := range frames {
			row[0], row[1] = strconv.Itoa(c), strconv.Itoa(f)
			for m := range mels {
				row[m+2] = strconv.FormatFloat(spec.At(0, c, m, f), 'g', 6, 64)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func newEncodeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "encode input output",
		Short: "Encode a file and write the latent as float16",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := readAudio(args[0])
			if err != nil {
				return err
			}
			cfg, err := g.autoEncoderConfig(a.channels())
			if err != nil {
				return err
			}
			ae, err := buildAutoEncoder(cfg)
			if err != nil {
				return err
			}

			x, err := autoencoder.FromChannels(padToMultiple(a.planar, ae.DownsampleFactor()))
			if err != nil {
				return err
			}
			z, _, err := ae.Encode(g.pass(), x)
			if err != nil {
				return err
			}

			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer func() {
				if closeErr := f.Close(); err == nil {
					err = closeErr
				}
			}()
			if err := writeLatent(f, z); err != nil {
				return err
			}

			logrus.WithFields(logrus.Fields{
				"file":   args[0],
				"output": args[1],
				"latent": fmt.Sprint(z.Shape()),
			}).Info("encoded")
			return nil
		},
	}
}

// padToMultiple zero-pads every channel to a multiple of n samples.
func padToMultiple(planar [][]float64, n int) [][]float64 {
	out := make([][]float64, len(planar))
	for c, ch := range planar {
		length := max((len(ch)+n-1)/n*n, n)
		out[c] = make([]float64, length)
		copy(out[c], ch)
	}
	return out
}

// writeLatent writes batch item 0 of a [b, c, t] latent: the magic, c and
// t as little-endian uint32, then c·t little-endian float16 values in
// channel-major order.
func writeLatent(w io.Writer, z *autoencoder.Tensor) error {
	bw := bufio.NewWriter(w)
	channels, frames := z.Dim(1), z.Dim(2)

	buf := []byte(latentMagic)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(frames))
	if _, err := bw.Write(buf); err != nil {
		return err
	}

	for c := range channels {
		for _, v := range z.Row(0, c) {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], float16.Fromfloat32(float32(v)).Bits())
			if _, err := bw.Write(b[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
