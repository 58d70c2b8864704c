package ordinex

import "github.com/sirgallo/ordinex/internal/ordinexerr"


//============================================= Ordinex Errors


// ErrorKind enumerates the seven fatal error kinds the engine can surface to a caller.
// Every kind is terminal to the operation that raised it; the engine never retries internally.
type ErrorKind = ordinexerr.Kind

const (
	ErrKindNullKey                 = ordinexerr.KindNullKey
	ErrKindUnsupportedType         = ordinexerr.KindUnsupportedType
	ErrKindReadOnly                = ordinexerr.KindReadOnly
	ErrKindCorruptPage             = ordinexerr.KindCorruptPage
	ErrKindRowTooLarge             = ordinexerr.KindRowTooLarge
	ErrKindNonIndexOnlyUnsupported = ordinexerr.KindNonIndexOnlyUnsupported
	ErrKindInternal                = ordinexerr.KindInternal
)

// Error is the typed error surfaced by every public operation in this module.
// Callers distinguish kinds with errors.As, not string matching.
type Error = ordinexerr.Error
