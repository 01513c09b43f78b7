// posture scores body posture from pose landmark frames.
//
//	posture serve              # MQTT landmarks in, scores out, HTTP API on :8090
//	posture score frame.json   # score one frame
//	posture replay rec.jsonl   # run a recording through the monitor
package main

func main() {
	Execute()
}
