package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = []string{"int", "long"}

var VehicleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"capacity_kg",
			"tyres",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"capacity_kg": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  100000,
			},

			"tyres": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  64,
			},

			"booking_version": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
