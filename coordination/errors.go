/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package coordination

import "strconv"

// Error is a protocol error code carried inside responses. Protocol errors
// flow back to the client as values; they are never raised as Go errors.
type Error int32

const (
	OK                      Error = 0
	SystemError             Error = -1
	RuntimeInconsistency    Error = -2
	BadArguments            Error = -8
	NoNode                  Error = -101
	BadVersion              Error = -103
	NoChildrenForEphemerals Error = -108
	NodeExists              Error = -110
	NotEmpty                Error = -111
	SessionExpired          Error = -112
)

func (e Error) String() string {
	switch e {
	case OK:
		return "ZOK"
	case SystemError:
		return "ZSYSTEMERROR"
	case RuntimeInconsistency:
		return "ZRUNTIMEINCONSISTENCY"
	case BadArguments:
		return "ZBADARGUMENTS"
	case NoNode:
		return "ZNONODE"
	case BadVersion:
		return "ZBADVERSION"
	case NoChildrenForEphemerals:
		return "ZNOCHILDRENFOREPHEMERALS"
	case NodeExists:
		return "ZNODEEXISTS"
	case NotEmpty:
		return "ZNOTEMPTY"
	case SessionExpired:
		return "ZSESSIONEXPIRED"
	default:
		return "ZERROR(" + strconv.Itoa(int(e)) + ")"
	}
}
