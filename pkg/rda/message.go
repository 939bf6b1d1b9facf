/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package rda

// Message is a decoded RDA message, one of StartMessage, DataMessage, StopMessage
type Message interface {
	isMessage()
}

type StartMessage struct {
	Table *ChannelTable
}

type DataMessage struct {
	Block *RawBlock
}

type StopMessage struct{}

func (*StartMessage) isMessage() {}
func (*DataMessage) isMessage()  {}
func (*StopMessage) isMessage()  {}

// ProtocolSource is implemented per amplifier protocol. DecodeNext blocks
// until a message is complete, Close unblocks it.
type ProtocolSource interface {
	DecodeNext() (Message, error)
	Close() error
}
