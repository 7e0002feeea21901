package simulate

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource devuelve valores uniformes en [0,1). Los tests inyectan una
// fuente con semilla o con secuencia fija.
type RandomSource interface {
	Float64() float64
}

// lockedRand es seguro entre goroutines: el motor simulado comparte un único
// generador entre requests.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

// NewSeededSource devuelve una fuente determinista. seed == 0 usa el reloj.
func NewSeededSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &lockedRand{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SequenceSource repite los valores dados de forma cíclica.
type SequenceSource struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequenceSource crea una fuente que devuelve los valores en orden y vuelve a empezar.
func NewSequenceSource(values ...float64) *SequenceSource {
	return &SequenceSource{values: values}
}

func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}
