package mpegts

import (
	"context"
	"io"

	"github.com/asticode/go-astits"
	"github.com/bluenviron/mediacommon/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/pkg/codecs/mpeg4audio"
)

const (
	videoPID = 256
	audioPID = 257

	videoStreamID = 224
	audioStreamID = 192

	// timestamps are shifted forward to leave room to the PCR.
	pcrOffset = 400000

	pcrPeriod = 3
)

var audNALU = []byte{byte(h264.NALUTypeAccessUnitDelimiter), 240}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) {
	return f(p)
}

// Writer is a MPEG-TS writer for one H264 track and one AAC track.
// Timestamps are expressed in microseconds.
type Writer struct {
	hasVideo    bool
	audioConfig *mpeg4audio.Config

	mux        *astits.Muxer
	pcrPID     uint16
	pcrCounter int
}

// NewWriter allocates a Writer.
// A nil audioConfig disables the audio track.
func NewWriter(
	w io.Writer,
	hasVideo bool,
	audioConfig *mpeg4audio.Config,
) *Writer {
	mw := &Writer{
		hasVideo:    hasVideo,
		audioConfig: audioConfig,
		pcrPID:      audioPID,
	}

	mw.mux = astits.NewMuxer(context.Background(), writerFunc(w.Write))

	if hasVideo {
		mw.mux.AddElementaryStream(astits.PMTElementaryStream{ //nolint:errcheck
			ElementaryPID: videoPID,
			StreamType:    astits.StreamTypeH264Video,
		})
		mw.pcrPID = videoPID
	}

	if audioConfig != nil {
		mw.mux.AddElementaryStream(astits.PMTElementaryStream{ //nolint:errcheck
			ElementaryPID: audioPID,
			StreamType:    astits.StreamTypeAACAudio,
		})
	}

	// tables are written by the muxer before the first random access point of the PCR PID.
	mw.mux.SetPCRPID(mw.pcrPID)

	return mw
}

// WriteH264 writes a H264 access unit.
func (w *Writer) WriteH264(
	pcr int64,
	dts int64,
	pts int64,
	randomAccess bool,
	au [][]byte,
) error {
	// some players require an access unit delimiter
	enc, err := h264.AnnexBMarshal(append([][]byte{audNALU}, au...))
	if err != nil {
		return err
	}

	oh := &astits.PESOptionalHeader{
		MarkerBits:      2,
		PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
		PTS:             clockReference(pts),
	}
	if dts != pts {
		oh.PTSDTSIndicator = astits.PTSDTSIndicatorBothPresent
		oh.DTS = clockReference(dts)
	}

	return w.writePES(videoPID, pcr, randomAccess, &astits.PESHeader{
		OptionalHeader: oh,
		StreamID:       videoStreamID,
	}, enc)
}

// WriteAAC writes an AAC access unit.
func (w *Writer) WriteAAC(
	pcr int64,
	pts int64,
	au []byte,
) error {
	enc, err := mpeg4audio.ADTSPackets{{
		Type:         w.audioConfig.Type,
		SampleRate:   w.audioConfig.SampleRate,
		ChannelCount: w.audioConfig.ChannelCount,
		AU:           au,
	}}.Marshal()
	if err != nil {
		return err
	}

	// every ADTS frame can be decoded on its own.
	return w.writePES(audioPID, pcr, true, &astits.PESHeader{
		OptionalHeader: &astits.PESOptionalHeader{
			MarkerBits:      2,
			PTSDTSIndicator: astits.PTSDTSIndicatorOnlyPTS,
			PTS:             clockReference(pts),
		},
		PacketLength: uint16(len(enc) + 8),
		StreamID:     audioStreamID,
	}, enc)
}

func (w *Writer) writePES(
	pid uint16,
	pcr int64,
	randomAccess bool,
	header *astits.PESHeader,
	data []byte,
) error {
	var af *astits.PacketAdaptationField

	if randomAccess {
		af = &astits.PacketAdaptationField{RandomAccessIndicator: true}
	}

	if pid == w.pcrPID {
		if w.pcrCounter == 0 {
			if af == nil {
				af = &astits.PacketAdaptationField{}
			}
			af.HasPCR = true
			af.PCR = &astits.ClockReference{Base: toClock(pcr)}
			w.pcrCounter = pcrPeriod
		}
		w.pcrCounter--
	}

	_, err := w.mux.WriteData(&astits.MuxerData{
		PID:             pid,
		AdaptationField: af,
		PES: &astits.PESData{
			Header: header,
			Data:   data,
		},
	})
	return err
}

func clockReference(ts int64) *astits.ClockReference {
	return &astits.ClockReference{Base: toClock(ts + pcrOffset)}
}
