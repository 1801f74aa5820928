package pattern

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Ограничения на количество проходов
const (
	MinPasses = 1
	MaxPasses = 35
)

var (
	ErrInvalidPassCount = errors.New("недопустимое количество проходов")
	ErrUnknownStandard  = errors.New("неизвестный стандарт затирания")
	ErrEmptyPattern     = errors.New("пустой пользовательский паттерн")
)

// Standard определяет именованный стандарт затирания
type Standard string

const (
	StandardZero    Standard = "zero"      // 1 проход нулями
	StandardOne     Standard = "one"       // 1 проход 0xFF
	StandardRandom  Standard = "random"    // 1 проход CSPRNG
	StandardDoD3    Standard = "dod3"      // DoD 5220.22-M: 0x55, 0xAA, random
	StandardGutmann Standard = "gutmann35" // Gutmann, фиксированные 35 проходов
	StandardCustom  Standard = "custom"    // пользовательский паттерн, N проходов
)

// RuleKind определяет тип правила генерации байтов
type RuleKind int

const (
	RuleConstant RuleKind = iota // один повторяющийся байт
	RuleSequence                 // повторяющаяся многобайтовая последовательность
	RuleRandom                   // криптографически стойкий случайный поток
)

func (k RuleKind) String() string {
	switch k {
	case RuleConstant:
		return "constant"
	case RuleSequence:
		return "sequence"
	case RuleRandom:
		return "random"
	default:
		return "unknown"
	}
}

// ByteRule описывает правило заполнения одного прохода.
// Правило - чистые данные: kind + байты, без поведения.
type ByteRule struct {
	Kind  RuleKind
	Bytes []byte // пусто для RuleRandom
}

// PassSpec описывает один разрешённый проход затирания.
// Неизменяем после Resolve.
type PassSpec struct {
	Name string
	Rule ByteRule
}

// IsRandom сообщает, является ли проход случайным
func (p PassSpec) IsRandom() bool {
	return p.Rule.Kind == RuleRandom
}

// Fill заполняет буфер согласно правилу прохода. Для последовательностей
// offset - абсолютное смещение в файле, чтобы паттерн оставался выровненным
// между чанками и при верификации.
func (p PassSpec) Fill(buf []byte, offset int64) error {
	switch p.Rule.Kind {
	case RuleConstant:
		b := p.Rule.Bytes[0]
		for i := range buf {
			buf[i] = b
		}
		return nil

	case RuleSequence:
		seq := p.Rule.Bytes
		n := int64(len(seq))
		for i := range buf {
			buf[i] = seq[(offset+int64(i))%n]
		}
		return nil

	case RuleRandom:
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("ошибка генерации случайных данных: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("неизвестное правило заполнения: %d", p.Rule.Kind)
	}
}

// ExpectedByte возвращает ожидаемый байт по смещению для детерминированных
// правил. Для RuleRandom второй результат false.
func (p PassSpec) ExpectedByte(offset int64) (byte, bool) {
	switch p.Rule.Kind {
	case RuleConstant:
		return p.Rule.Bytes[0], true
	case RuleSequence:
		return p.Rule.Bytes[offset%int64(len(p.Rule.Bytes))], true
	default:
		return 0, false
	}
}

func constant(name string, b byte) PassSpec {
	return PassSpec{Name: name, Rule: ByteRule{Kind: RuleConstant, Bytes: []byte{b}}}
}

func sequence(name string, seq ...byte) PassSpec {
	return PassSpec{Name: name, Rule: ByteRule{Kind: RuleSequence, Bytes: seq}}
}

func random(name string) PassSpec {
	return PassSpec{Name: name, Rule: ByteRule{Kind: RuleRandom}}
}

// Spec описывает запрошенный набор проходов до разрешения
type Spec struct {
	Standard Standard
	Custom   []byte // только для StandardCustom
	Passes   int    // только для StandardCustom, 1..35
}

// Resolve разворачивает стандарт или пользовательский паттерн в упорядоченный
// список PassSpec. Ошибки планирования возвращаются до любой деструктивной
// операции.
func Resolve(spec Spec) ([]PassSpec, error) {
	switch spec.Standard {
	case StandardZero:
		return []PassSpec{constant("zero-fill", 0x00)}, nil

	case StandardOne:
		return []PassSpec{constant("one-fill", 0xFF)}, nil

	case StandardRandom:
		return []PassSpec{random("random")}, nil

	case StandardDoD3:
		return []PassSpec{
			constant("dod-0x55", 0x55),
			constant("dod-0xAA", 0xAA),
			random("dod-random"),
		}, nil

	case StandardGutmann:
		return gutmannPasses(), nil

	case StandardCustom:
		if spec.Passes < MinPasses || spec.Passes > MaxPasses {
			return nil, fmt.Errorf("%w: %d (допустимо %d..%d)", ErrInvalidPassCount, spec.Passes, MinPasses, MaxPasses)
		}
		if len(spec.Custom) == 0 {
			return nil, ErrEmptyPattern
		}
		seq := make([]byte, len(spec.Custom))
		copy(seq, spec.Custom)
		passes := make([]PassSpec, spec.Passes)
		for i := range passes {
			passes[i] = PassSpec{
				Name: fmt.Sprintf("custom-%d", i+1),
				Rule: ByteRule{Kind: RuleSequence, Bytes: seq},
			}
		}
		return passes, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStandard, spec.Standard)
	}
}

// gutmannPasses возвращает классическую 35-проходную последовательность Гутмана:
// 4 случайных прохода, 27 фиксированных, 4 случайных.
func gutmannPasses() []PassSpec {
	passes := make([]PassSpec, 0, 35)

	for i := 1; i <= 4; i++ {
		passes = append(passes, random(fmt.Sprintf("gutmann-lead-random-%d", i)))
	}

	fixed := []PassSpec{
		constant("gutmann-0x55", 0x55),
		constant("gutmann-0xAA", 0xAA),
		sequence("gutmann-924924", 0x92, 0x49, 0x24),
		sequence("gutmann-492492", 0x49, 0x24, 0x92),
		sequence("gutmann-249249", 0x24, 0x92, 0x49),
		constant("gutmann-0x00", 0x00),
		constant("gutmann-0x11", 0x11),
		constant("gutmann-0x22", 0x22),
		constant("gutmann-0x33", 0x33),
		constant("gutmann-0x44", 0x44),
		constant("gutmann-0x55b", 0x55),
		constant("gutmann-0x66", 0x66),
		constant("gutmann-0x77", 0x77),
		constant("gutmann-0x88", 0x88),
		constant("gutmann-0x99", 0x99),
		constant("gutmann-0xAAb", 0xAA),
		constant("gutmann-0xBB", 0xBB),
		constant("gutmann-0xCC", 0xCC),
		constant("gutmann-0xDD", 0xDD),
		constant("gutmann-0xEE", 0xEE),
		constant("gutmann-0xFF", 0xFF),
		sequence("gutmann-924924b", 0x92, 0x49, 0x24),
		sequence("gutmann-492492b", 0x49, 0x24, 0x92),
		sequence("gutmann-249249b", 0x24, 0x92, 0x49),
		sequence("gutmann-6DB6DB", 0x6D, 0xB6, 0xDB),
		sequence("gutmann-B6DB6D", 0xB6, 0xDB, 0x6D),
		sequence("gutmann-DB6DB6", 0xDB, 0x6D, 0xB6),
	}
	passes = append(passes, fixed...)

	for i := 1; i <= 4; i++ {
		passes = append(passes, random(fmt.Sprintf("gutmann-tail-random-%d", i)))
	}

	return passes
}

// ValidateStandard проверяет корректность имени стандарта
func ValidateStandard(name string) (Standard, error) {
	s := Standard(name)
	switch s {
	case StandardZero, StandardOne, StandardRandom, StandardDoD3, StandardGutmann, StandardCustom:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStandard, name)
	}
}
