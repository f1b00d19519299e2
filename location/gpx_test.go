/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package location

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timelinize/trailmap/geo"
)

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
	<metadata>
		<name>Morning Ride</name>
		<time>2023-04-01T17:16:10Z</time>
	</metadata>
	<wpt lat="1" lon="1"><name>not a track point</name></wpt>
	<trk>
		<name>Morning Ride</name>
		<trkseg>
			<trkpt lat="45.91689727" lon="6.86775060">
				<ele>1035.4</ele>
				<time>2023-04-01T17:16:11Z</time>
				<hdop>1.2</hdop>
			</trkpt>
			<trkpt lat="45.9170" lon="6.8680">
				<time>2023-04-01T17:16:12Z</time>
				<course>359.7</course>
			</trkpt>
			<trkpt lat="45.9171" lon="6.8681"></trkpt>
		</trkseg>
	</trk>
</gpx>`

func TestGPXSource(t *testing.T) {
	recs, err := ReadAll(context.Background(), NewGPXSource(strings.NewReader(sampleGPX), nil))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, time.Date(2023, 4, 1, 17, 16, 11, 0, time.UTC), recs[0].Timestamp)
	assert.Equal(t, geo.Point{Latitude: 45.91689727, Longitude: 6.86775060}, recs[0].Point)
	require.NotNil(t, recs[0].Altitude)
	assert.Equal(t, int32(1035), *recs[0].Altitude)
	assert.Equal(t, uint32(6), recs[0].Accuracy)
	assert.Nil(t, recs[0].Heading)

	assert.Equal(t, uint32(defaultAccuracy), recs[1].Accuracy)
	assert.Nil(t, recs[1].Altitude)
	require.NotNil(t, recs[1].Heading)
	assert.Equal(t, uint16(0), *recs[1].Heading)

	// no time of its own: falls back to the document's time
	assert.Equal(t, time.Date(2023, 4, 1, 17, 16, 10, 0, time.UTC), recs[2].Timestamp)
}

func TestGPXSourceNoTime(t *testing.T) {
	const doc = `<gpx><trk><trkseg><trkpt lat="1" lon="2"></trkpt></trkseg></trk></gpx>`
	recs, err := ReadAll(context.Background(), NewGPXSource(strings.NewReader(doc), nil))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGPXSourceMalformed(t *testing.T) {
	const doc = `<gpx><trk><trkseg><trkpt lat="1" lon="2"><time>yesterday</time></trkpt></trkseg></trk></gpx>`
	_, err := ReadAll(context.Background(), NewGPXSource(strings.NewReader(doc), nil))
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}
