package shred

import (
	"fmt"
	"io"
	"os"

	"fileshredder_pro/internal/pattern"
)

// Параметры верификации по умолчанию
const (
	// Файлы меньше порога читаются целиком
	DefaultFullVerifyThreshold = 1024 * 1024
	// Размер одного окна выборки
	verifyWindowSize = 4096
	// Минимум различных байтов на окно для случайного финального прохода
	minDistinctBytes = 16
)

// Verifier подтверждает, что после финального прохода в файле не осталось
// восстановимого сигнала. Для больших файлов читается выборка смещений,
// чтобы ограничить стоимость; плотность выборки настраивается.
type Verifier struct {
	FullVerifyThreshold int64
	SampleFraction      float64 // доля файла, покрываемая выборкой, 0..1
}

// NewVerifier создаёт верификатор с указанной плотностью выборки
func NewVerifier(sampleFraction float64) *Verifier {
	if sampleFraction <= 0 {
		sampleFraction = 0.05
	}
	if sampleFraction > 1 {
		sampleFraction = 1
	}
	return &Verifier{
		FullVerifyThreshold: DefaultFullVerifyThreshold,
		SampleFraction:      sampleFraction,
	}
}

// VerifyFile читает перезаписанное содержимое и сверяет его с ожидаемым
// паттерном финального прохода. Для детерминированных проходов сравнение
// побайтовое. Случайный финальный проход нельзя воспроизвести, поэтому
// применяется явная политика: окно не должно состоять из одного байта
// и должно содержать не менее minDistinctBytes различных значений
// (политика задокументирована, см. DESIGN.md).
func (v *Verifier) VerifyFile(file *os.File, finalPass pattern.PassSpec) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("ошибка stat при верификации: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	for _, off := range v.sampleOffsets(size) {
		winLen := int64(verifyWindowSize)
		if off+winLen > size {
			winLen = size - off
		}

		buf := GetBuffer(int(winLen))
		_, err := file.ReadAt(buf, off)
		if err != nil && err != io.EOF {
			PutBuffer(buf)
			return fmt.Errorf("ошибка чтения при верификации (смещение %d): %w", off, err)
		}

		err = v.checkWindow(buf, off, finalPass)
		PutBuffer(buf)
		if err != nil {
			return err
		}
	}

	return nil
}

// sampleOffsets возвращает смещения окон для проверки. Маленькие файлы
// покрываются полностью; для больших окна распределяются равномерно,
// первое и последнее окна проверяются всегда.
func (v *Verifier) sampleOffsets(size int64) []int64 {
	if size <= v.FullVerifyThreshold {
		offsets := make([]int64, 0, size/verifyWindowSize+1)
		for off := int64(0); off < size; off += verifyWindowSize {
			offsets = append(offsets, off)
		}
		return offsets
	}

	sampled := int64(float64(size) * v.SampleFraction)
	count := sampled / verifyWindowSize
	if count < 2 {
		count = 2
	}

	offsets := make([]int64, 0, count)
	step := size / count
	for i := int64(0); i < count; i++ {
		offsets = append(offsets, i*step)
	}
	tail := size - verifyWindowSize
	if tail > offsets[len(offsets)-1] {
		offsets = append(offsets, tail)
	}
	return offsets
}

func (v *Verifier) checkWindow(buf []byte, offset int64, finalPass pattern.PassSpec) error {
	if !finalPass.IsRandom() {
		for i, b := range buf {
			expected, _ := finalPass.ExpectedByte(offset + int64(i))
			if b != expected {
				return fmt.Errorf("%w: байт 0x%02X вместо 0x%02X на смещении %d",
					ErrVerificationFailed, b, expected, offset+int64(i))
			}
		}
		return nil
	}

	// Случайный финальный проход: энтропийная политика
	if len(buf) >= 64 {
		first := buf[0]
		uniform := true
		for _, b := range buf {
			if b != first {
				uniform = false
				break
			}
		}
		if uniform {
			return fmt.Errorf("%w: окно на смещении %d заполнено одним байтом 0x%02X",
				ErrVerificationFailed, offset, first)
		}
	}

	if len(buf) >= verifyWindowSize {
		var seen [256]bool
		distinct := 0
		for _, b := range buf {
			if !seen[b] {
				seen[b] = true
				distinct++
			}
		}
		if distinct < minDistinctBytes {
			return fmt.Errorf("%w: всего %d различных байтов в окне на смещении %d",
				ErrVerificationFailed, distinct, offset)
		}
	}

	return nil
}
