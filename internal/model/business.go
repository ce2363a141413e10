package model

import "time"

// Business represents a seller on the marketplace.  A business owns
// listings directly or through its branches and receives one
// reservation per customer checkout that touches its listings.  The
// Code field is a short uppercase identifier used as the prefix of
// reservation numbers (e.g. "GRNCAFE-20250831-00001").
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the business account owner.
//  Code      – short unique uppercase code used in reservation numbers.
//  Name      – display name of the business.
//  Phone     – contact phone shown to pickup staff (nullable).
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Business struct {
    ID        uint64    // businesses.id
    OwnerID   uint64    // businesses.owner_id
    Code      string    // businesses.code
    Name      string    // businesses.name
    Phone     *string   // businesses.phone (nullable)
    CreatedAt time.Time // businesses.created_at
    UpdatedAt time.Time // businesses.updated_at
}

// Branch represents a physical location operated under a business.
// Branch managers may verify and cancel only the reservation items
// that belong to their branch.
//
// Fields:
//  ID           – primary key identifier.
//  BusinessID   – business this branch belongs to.
//  Code         – short branch code unique within the business.
//  Name         – display name of the branch.
//  ManagerID    – user ID of the branch manager (nullable).
//  ManagerPhone – manager contact shown in QR payloads (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Branch struct {
    ID           uint64    // branches.id
    BusinessID   uint64    // branches.business_id
    Code         string    // branches.code
    Name         string    // branches.name
    ManagerID    *uint64   // branches.manager_id (nullable)
    ManagerPhone *string   // branches.manager_phone (nullable)
    CreatedAt    time.Time // branches.created_at
    UpdatedAt    time.Time // branches.updated_at
}
