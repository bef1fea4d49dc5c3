package device

import (
	"context"
	"time"

	"github.com/wialon/wips-endpoint/pkg/signal"
	"github.com/wialon/wips-endpoint/pkg/wiproto"
)

// runSampler drives the three periodic tasks: refresh position every
// PositionInterval, force a LOW-priority emit every EventInterval, and
// resample the battery/param set every ParamInterval. All three run
// regardless of connection state.
func (d *Device) runSampler(ctx context.Context) {
	posTicker := time.NewTicker(d.Sampler.PositionInterval)
	evtTicker := time.NewTicker(d.Sampler.EventInterval)
	paramTicker := time.NewTicker(d.Sampler.ParamInterval)
	defer posTicker.Stop()
	defer evtTicker.Stop()
	defer paramTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-posTicker.C:
			d.samplePosition(ctx)
		case <-evtTicker.C:
			d.Observer.Emit(signal.Low)
		case <-paramTicker.C:
			d.sampleParams(ctx)
		}
	}
}

func (d *Device) samplePosition(ctx context.Context) {
	if d.Geo == nil {
		return
	}
	fix, err := d.Geo.Sample(ctx)
	if err != nil {
		d.logger.Warn("geo sample failed", "error", err)
		return
	}
	if fix.Unavailable() {
		return
	}
	latDeg, latSign := wiproto.DecimalToDDMM(fix.Latitude, true)
	lonDeg, lonSign := wiproto.DecimalToDDMM(fix.Longitude, false)
	d.Observer.UpdatePositionalBatch(map[string]wiproto.Value{
		"date":     wiproto.StringValue(wiproto.FormatDate(fix.Time)),
		"time":     wiproto.StringValue(wiproto.FormatTime(fix.Time)),
		"lat_deg":  wiproto.StringValue(latDeg),
		"lat_sign": wiproto.StringValue(latSign),
		"lon_deg":  wiproto.StringValue(lonDeg),
		"lon_sign": wiproto.StringValue(lonSign),
		"speed":    wiproto.RealValue(fix.Speed),
		"course":   wiproto.RealValue(fix.Course),
		"alt":      wiproto.RealValue(fix.Altitude),
		"sats":     wiproto.IntValue(int64(fix.Satellites)),
	})
}

func (d *Device) sampleParams(ctx context.Context) {
	if d.Battery == nil {
		return
	}
	pct, err := d.Battery.Percent(ctx)
	if err != nil {
		d.logger.Warn("battery sample failed", "error", err)
		return
	}
	d.Observer.UpdateParam("battery", wiproto.RealValue(pct))
}
