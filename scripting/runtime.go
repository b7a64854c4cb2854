/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package scripting

import zdb "github.com/clickingbuttons/zdb"

// Runtime is the contract every scripting collaborator implements,
// defined in the root package since the scan dispatcher depends on it
// directly (see zdb.ScriptRuntime). This package only supplies a
// concrete implementation of it (Reference); it does not redefine the
// contract.
type Runtime = zdb.ScriptRuntime
