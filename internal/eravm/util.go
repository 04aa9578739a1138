// Package eravm lowers a mid-level module into the flat, function-based
// form the EraVM-style target executes: contract scopes are flattened,
// object trees are split into creation and runtime entry points, an
// ABI-decoding entry function is synthesized, and high-level returns are
// rewritten into the target's return-intrinsic call sequence.
package eravm

// Byte widths of the target's data layout.
const (
	ByteLenByte    = 1
	ByteLenX32     = 4
	ByteLenX64     = 8
	ByteLenEthAddr = 20
	ByteLenField   = 32
)

// Bit widths derived from the byte widths.
const (
	BitLenBool    = 1
	BitLenByte    = 8
	BitLenX32     = BitLenByte * ByteLenX32
	BitLenX64     = BitLenByte * ByteLenX64
	BitLenEthAddr = BitLenByte * ByteLenEthAddr
	BitLenField   = BitLenByte * ByteLenField
)

// HeapAuxOffsetCtorRetData is the fixed auxiliary-heap base offset of the
// constructor return-data area.
const HeapAuxOffsetCtorRetData = ByteLenField * 8

// ExtraABIDataSize is the number of extra caller-supplied words carried
// alongside the calldata.
const ExtraABIDataSize = 10

// Return-forward page modes for the return intrinsic.
const (
	RetUseHeap       = 0
	RetForwardFatPtr = 1
	RetUseAuxHeap    = 2
)

// Global slot names for cross-call VM state.
const (
	GlobHeapMemPtr   = "memory_pointer"
	GlobCallDataSize = "calldatasize"
	GlobRetDataSize  = "returndatasize"
	GlobCallFlags    = "call_flags"
	GlobExtraABIData = "extra_abi_data"
	GlobCallDataPtr  = "ptr_calldata"
	GlobRetDataPtr   = "ptr_return_data"
	GlobActivePtr    = "ptr_active"
)

// Entry-function argument layout: one generic-address-space pointer
// followed by the word arguments, indexed below relative to the pointer.
const (
	ArgIndexCallDataABI = 0
	ArgIndexCallFlags   = 1
	MandatoryArgCount   = 2
)

// Names of the functions the lowering synthesizes or declares.
const (
	FuncEntry   = "__entry"
	FuncRuntime = "__runtime"
	FuncDeploy  = "__deploy"
	FuncReturn  = "__return"
	FuncRevert  = "__revert"
)
