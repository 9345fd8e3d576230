// Package gtfsrt exports fleet snapshots as GTFS-Realtime vehicle positions.
package gtfsrt

import (
	"fmt"

	"railsim/pkg/geo"
	"railsim/pkg/types"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

const (
	gtfsRealtimeVersion = "2.0"
	ContentType         = "application/x-protobuf"
)

const kmhToMps = 1000.0 / 3600.0

// BuildFeed returns a full-dataset feed with one VehiclePosition entity per
// train. Trains are located on the map through geo.Locate; when the stations
// carry no coordinates the entity has no Position.
func BuildFeed(snap types.Snapshot, stations []types.Station) *gtfsrtpb.FeedMessage {
	ts := uint64(snap.Timestamp.Unix())

	feed := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(ts),
		},
		Entity: make([]*gtfsrtpb.FeedEntity, 0, len(snap.Trains)),
	}

	for _, t := range snap.Trains {
		feed.Entity = append(feed.Entity, &gtfsrtpb.FeedEntity{
			Id:      proto.String(t.ID),
			Vehicle: vehiclePosition(t, stations, ts),
		})
	}
	return feed
}

func vehiclePosition(t types.Train, stations []types.Station, ts uint64) *gtfsrtpb.VehiclePosition {
	vp := &gtfsrtpb.VehiclePosition{
		Trip: &gtfsrtpb.TripDescriptor{
			TripId:      proto.String(t.ID),
			RouteId:     proto.String(string(t.Category)),
			DirectionId: proto.Uint32(directionID(t.Direction)),
		},
		Vehicle: &gtfsrtpb.VehicleDescriptor{
			Id:    proto.String(t.ID),
			Label: proto.String(t.Name),
		},
		Timestamp:     proto.Uint64(ts),
		CurrentStatus: gtfsrtpb.VehiclePosition_IN_TRANSIT_TO.Enum(),
	}

	if t.Status == types.StatusHolding {
		vp.CurrentStatus = gtfsrtpb.VehiclePosition_STOPPED_AT.Enum()
	}
	if t.NextStation != "" {
		vp.StopId = proto.String(t.NextStation)
	}
	if t.Conflict {
		vp.CongestionLevel = gtfsrtpb.VehiclePosition_CONGESTION.Enum()
	} else {
		vp.CongestionLevel = gtfsrtpb.VehiclePosition_RUNNING_SMOOTHLY.Enum()
	}

	if lat, lng, ok := geo.Locate(t.Position, stations); ok {
		vp.Position = &gtfsrtpb.Position{
			Latitude:  proto.Float32(float32(lat)),
			Longitude: proto.Float32(float32(lng)),
			Speed:     proto.Float32(float32(t.Speed * kmhToMps)),
		}
	}
	return vp
}

func directionID(d types.Direction) uint32 {
	if d == types.DirectionDown {
		return 1
	}
	return 0
}

// Marshal encodes the vehicle positions feed for a snapshot.
func Marshal(snap types.Snapshot, stations []types.Station) ([]byte, error) {
	b, err := proto.Marshal(BuildFeed(snap, stations))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GTFS-RT feed: %w", err)
	}
	return b, nil
}
