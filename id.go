package pipeline

import "github.com/rnwood/Fake4Dataverse-sub003/id"

// ID is the primary identifier type for all pipeline entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
