package eravm

import "math/big"

// The calldata ABI pointer carries its window length in bits
// [ABILengthBitOffset, ABILengthBitOffset+32) of the pointer word.
const ABILengthBitOffset = BitLenX32 * 3

// ABILengthMask masks the decoded length field.
const ABILengthMask = 0xFFFFFFFF

// EncodeABILength returns a copy of ptr with its length field set to length.
func EncodeABILength(ptr *big.Int, length uint64) *big.Int {
	mask := new(big.Int).Lsh(big.NewInt(ABILengthMask), ABILengthBitOffset)
	out := new(big.Int).AndNot(ptr, mask)
	field := new(big.Int).Lsh(new(big.Int).SetUint64(length&ABILengthMask), ABILengthBitOffset)
	return out.Or(out, field)
}

// DecodeABILength extracts the length field from an ABI pointer word.
func DecodeABILength(ptr *big.Int) uint64 {
	field := new(big.Int).Rsh(ptr, ABILengthBitOffset)
	return field.Uint64() & ABILengthMask
}
