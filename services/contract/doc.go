// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package contract models a Stipula contract as it is edited.
//
// A Contract owns its declarations, an ordered list of Functions and the
// raw sources of its higher-order inputs. Each Function owns a Tree: an
// arena of actions addressed by ActionID, where sibling order lives in the
// parent's child lists and IF/AFTER_TIME/AT_DATE actions own branch lists.
//
// # Action Variants
//
// An action's payload is one of SendValue, SendCalc, MoveFull, MovePart,
// If, AfterTime or AtDate. Update refuses to change an action's kind; delete
// and reinsert instead.
//
// # Persistence
//
// Snapshot is the project file. Contract implements json.Marshaler with the
// project layout, and decoding accepts the short action tags (SEND1, MOVE2,
// WHEN1, ...) found in older files.
//
// # Editing Context
//
// Project wraps a Contract with a model/text mode flag. Once the user edits
// the generated text by hand, the text is authoritative and model edits fail
// with ErrTextMode until ResetToModel.
package contract
