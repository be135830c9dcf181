package types

import "github.com/google/uuid"

// FileID identifies an entry of a file set
type FileID string

// BlobID is the opaque handle of uploaded content in the blob store
type BlobID string

// SessionID identifies a browser session
type SessionID string

// TransitionToken is the single-use token that carries a result reference
// across one navigation
type TransitionToken string

func NewFileID() FileID                   { return FileID(uuid.NewString()) }
func NewBlobID() BlobID                   { return BlobID(uuid.NewString()) }
func NewSessionID() SessionID             { return SessionID(uuid.NewString()) }
func NewTransitionToken() TransitionToken { return TransitionToken(uuid.NewString()) }

func (x FileID) String() string          { return string(x) }
func (x BlobID) String() string          { return string(x) }
func (x SessionID) String() string       { return string(x) }
func (x TransitionToken) String() string { return string(x) }
