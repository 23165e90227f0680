package pool

import "sort"

func sortRunDocuments(docs []RunDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Iteration != docs[j].Iteration {
			return docs[i].Iteration < docs[j].Iteration
		}
		iRemote, jRemote := docs[i].Site == RemoteSite, docs[j].Site == RemoteSite
		if iRemote != jRemote {
			return jRemote
		}
		return docs[i].Site < docs[j].Site
	})
}
