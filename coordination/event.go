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

// EventType tags a watch notification.
type EventType int32

const (
	EventNotWatching EventType = -2
	EventSession     EventType = -1
	EventCreated     EventType = 1
	EventDeleted     EventType = 2
	EventChanged     EventType = 3
	EventChild       EventType = 4
)

func (e EventType) String() string {
	switch e {
	case EventNotWatching:
		return "NOTWATCHING"
	case EventSession:
		return "SESSION"
	case EventCreated:
		return "CREATED"
	case EventDeleted:
		return "DELETED"
	case EventChanged:
		return "CHANGED"
	case EventChild:
		return "CHILD"
	default:
		return "UNKNOWN"
	}
}

// State is the session state carried by watch notifications.
type State int32

const (
	StateExpiredSession State = -112
	StateConnected      State = 3
)
