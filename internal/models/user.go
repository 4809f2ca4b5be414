package models

// User struct matches the document in MongoDB
type User struct {
	Email         string `bson:"email" json:"email"`
	Name          string `bson:"name" json:"name"`
	Password      string `bson:"password" json:"-"`
	Role          string `bson:"role" json:"role"`
	Location      string `bson:"location" json:"location"`
	WarehouseCode string `bson:"warehouseCode" json:"warehouseCode"`
	Status        string `bson:"status" json:"status"`
}
