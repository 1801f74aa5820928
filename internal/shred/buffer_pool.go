package shred

import "sync"

// Размерные классы пулов буферов (степени двойки)
var bufferClasses = []int{64 * 1024, 256 * 1024, 1024 * 1024, 4 * 1024 * 1024, 16 * 1024 * 1024}

var bufferPools = func() []*sync.Pool {
	pools := make([]*sync.Pool, len(bufferClasses))
	for i, size := range bufferClasses {
		size := size
		pools[i] = &sync.Pool{
			New: func() interface{} {
				return make([]byte, size)
			},
		}
	}
	return pools
}()

// GetBuffer выдаёт буфер не меньше запрошенного размера из пула.
// Буферы больше максимального класса выделяются напрямую.
func GetBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}
	for i, class := range bufferClasses {
		if size <= class {
			buf := bufferPools[i].Get().([]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// PutBuffer возвращает буфер в соответствующий пул. Содержимое обнуляется:
// буфер мог содержать случайный паттерн последнего прохода.
func PutBuffer(buf []byte) {
	capacity := cap(buf)
	for i, class := range bufferClasses {
		if capacity == class {
			full := buf[:capacity]
			for j := range full {
				full[j] = 0
			}
			bufferPools[i].Put(full)
			return
		}
	}
}
