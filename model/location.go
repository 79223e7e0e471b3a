package model

// Location identifies the node a branch of execution currently sits at.
// Values are immutable; transitions produce new Locations.
type Location struct {
	ObjectType   string
	ObjectId     string
	LocationId   string
	SubroutineId string
}

func NewLocation(objectType string, objectId string, locationId string) Location {
	return Location{
		ObjectType: objectType,
		ObjectId:   objectId,
		LocationId: locationId,
	}
}

func (l Location) WithSubroutine(subroutineId string) Location {
	l.SubroutineId = subroutineId
	return l
}

func (l Location) At(locationId string) Location {
	return Location{
		ObjectType: l.ObjectType,
		ObjectId:   l.ObjectId,
		LocationId: locationId,
	}
}
