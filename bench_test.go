package autoencoder

import (
	"fmt"
	"math/rand/v2"
	"testing"
)

func BenchmarkAutoEncoder1d_Forward(b *testing.B) {
	for _, length := range []int{1024, 16384} {
		b.Run(fmt.Sprintf("len_%d", length), func(b *testing.B) {
			ae, err := NewAutoEncoder1d(testAutoEncoderConfig())
			if err != nil {
				b.Fatal(err)
			}
			x := randomInput(1, 1, length)
			pass := Eval(rand.NewPCG(1, 1))

			b.ReportAllocs()
			b.SetBytes(int64(length * 8))
			for b.Loop() {
				if _, _, err := ae.Forward(pass, x); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSTFT_RoundTrip(b *testing.B) {
	const length = 48000
	s, err := NewSTFT(STFTConfig{NumFFT: 1024, Length: length})
	if err != nil {
		b.Fatal(err)
	}
	x := stereoSine(length)

	b.ReportAllocs()
	for b.Loop() {
		m, p, err := s.Encode(x)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := s.Decode(m, p); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMelSpectrogram_Forward(b *testing.B) {
	m, err := NewMelSpectrogram(MelConfig{})
	if err != nil {
		b.Fatal(err)
	}
	x := stereoSine(RateDAT)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := m.Forward(x); err != nil {
			b.Fatal(err)
		}
	}
}
