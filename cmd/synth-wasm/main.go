//go:build js && wasm

package main

import (
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-synth/synth"
)

var (
	engine       *synth.Engine
	outputBuffer []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	// Export functions to JavaScript
	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmStopAll", js.FuncOf(wasmStopAll))
	js.Global().Set("wasmSetInstrument", js.FuncOf(wasmSetInstrument))
	js.Global().Set("wasmSetReverb", js.FuncOf(wasmSetReverb))
	js.Global().Set("wasmSetVolume", js.FuncOf(wasmSetVolume))
	js.Global().Set("wasmExportLog", js.FuncOf(wasmExportLog))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM synth module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	sampleRate := args[0].Int()

	engine = synth.NewEngine(sampleRate, nil)
	engine.Init()

	// Pre-allocate output buffer for 128 stereo frames
	outputBuffer = make([]float32, 128*2)

	println("Synth initialized at", sampleRate, "Hz")
	return nil
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || engine == nil {
		return nil
	}
	engine.PlayNote(args[0].Int(), args[1].Float())
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.StopNote(args[0].Int())
	return nil
}

func wasmStopAll(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return nil
	}
	engine.StopAll()
	return nil
}

func wasmSetInstrument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.SetInstrument(args[0].String())
	return nil
}

func wasmSetReverb(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.SetReverbMix(args[0].Float())
	return nil
}

func wasmSetVolume(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return nil
	}
	engine.SetVolume(args[0].Float())
	return nil
}

func wasmExportLog(this js.Value, args []js.Value) interface{} {
	if engine == nil {
		return ""
	}
	return engine.ExportLog()
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || engine == nil {
		return 0
	}

	numFrames := args[0].Int()
	if numFrames > 128 {
		numFrames = 128
	}
	if numFrames < 1 {
		return 0
	}

	engine.ProcessInto(outputBuffer[:numFrames*2])

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	// Return WASM memory buffer for access from JS
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
