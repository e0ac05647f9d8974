package utils

import (
	"encoding/binary"
	"math"
)

// Float32ToBytes converte um valor float32 para bytes (formato IEEE 754)
func Float32ToBytes(val float32) []byte {
	bits := math.Float32bits(val)
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, bits)
	return bytes
}

// BytesToFloat32 converte bytes para float32 (formato IEEE 754)
func BytesToFloat32(bytes []byte) float32 {
	bits := binary.BigEndian.Uint32(bytes)
	return math.Float32frombits(bits)
}

// Int16ToBytes converte um valor int16 para bytes
func Int16ToBytes(val int16) []byte {
	bytes := make([]byte, 2)
	binary.BigEndian.PutUint16(bytes, uint16(val))
	return bytes
}

// BytesToInt16 converte bytes para int16
func BytesToInt16(bytes []byte) int16 {
	return int16(binary.BigEndian.Uint16(bytes))
}

// Int32ToBytes converte um valor int32 para bytes (DINT)
func Int32ToBytes(val int32) []byte {
	bytes := make([]byte, 4)
	binary.BigEndian.PutUint32(bytes, uint32(val))
	return bytes
}

// BytesToInt32 converte bytes (DINT) para int32
func BytesToInt32(bytes []byte) int32 {
	return int32(binary.BigEndian.Uint32(bytes))
}
