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

package config

const (
	ConfigDir  = ".go-rda"
	ConfigFile = "config"
	DBFile     = "state.db"

	DefaultLogLevel = "info"

	// 32 bit RDA port of the recorder. The 16 bit variant listens on 51234.
	DefaultRDAAddress = "localhost"
	DefaultRDAPort    = 51244

	// 5000 Hz amplifier output, 100 points per block, 500 Hz downstream.
	DefaultStride         = 10
	DefaultPointsPerBlock = 100

	DefaultSaveQueueSize = 1024
	DefaultLiveQueueSize = 64

	DefaultApiAddress = "127.0.0.1"
	DefaultApiPort    = 8002

	DefaultNATSSubject = "rda.live"
)
